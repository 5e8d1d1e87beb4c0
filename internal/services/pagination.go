package services

import "github.com/fahndung/backend/internal/models"

const (
	defaultPage    = 1
	defaultPerPage = 12
	maxPerPage     = 100
	// siblingCount is the number of pages shown on each side of the current page
	siblingCount = 1
)

// normalizePage clamps page and perPage to their allowed ranges
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// TotalPages returns the number of pages needed for total items
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// PageRange returns the entries of a pagination bar.
// Short ranges are listed in full; longer ones keep the first and last page,
// the current page with its siblings, and mark skipped pages with a gap.
func PageRange(current, totalPages, siblings int) []models.PageItem {
	// first, last, current and two gaps
	if siblings+5 >= totalPages {
		return pages(1, totalPages)
	}

	left := max(current-siblings, 1)
	right := min(current+siblings, totalPages)
	showLeftGap := left > 2
	showRightGap := right < totalPages-2
	edgeCount := 3 + 2*siblings

	gap := models.PageItem{Gap: true}
	switch {
	case !showLeftGap && showRightGap:
		return append(pages(1, edgeCount), gap, models.PageItem{Page: totalPages})
	case showLeftGap && !showRightGap:
		return append([]models.PageItem{{Page: 1}, gap}, pages(totalPages-edgeCount+1, totalPages)...)
	case showLeftGap && showRightGap:
		items := append([]models.PageItem{{Page: 1}, gap}, pages(left, right)...)
		return append(items, gap, models.PageItem{Page: totalPages})
	default:
		return []models.PageItem{}
	}
}

func pages(from, to int) []models.PageItem {
	items := make([]models.PageItem, 0, max(to-from+1, 0))
	for p := from; p <= to; p++ {
		items = append(items, models.PageItem{Page: p})
	}
	return items
}

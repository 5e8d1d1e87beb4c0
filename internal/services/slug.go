package services

import (
	"regexp"
	"strings"
)

// shortSlugLength is the maximum length of a generated slug
const shortSlugLength = 42

var (
	umlautReplacer  = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9-]{3,100}$`)
	uuidPattern     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	caseNumberRegex = regexp.MustCompile(`^(?:[A-Z]{2,4}-)?\d{4}-[A-Z]-\d{3,8}(?:-[A-Z])?$`)
)

// Slugify converts a title into a URL slug.
// German umlauts are transliterated, every other run of non-alphanumeric characters becomes one dash.
func Slugify(title string) string {
	slug := umlautReplacer.Replace(strings.ToLower(title))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ShortSlug is Slugify cut to at most 42 characters without a trailing dash
func ShortSlug(title string) string {
	slug := Slugify(title)
	if len(slug) <= shortSlugLength {
		return slug
	}
	return strings.TrimRight(slug[:shortSlugLength], "-")
}

// ValidateSlug reports whether slug has the form of a generated slug
func ValidateSlug(slug string) bool {
	return slugPattern.MatchString(slug) && !strings.HasPrefix(slug, "-") && !strings.HasSuffix(slug, "-")
}

// IsUUID reports whether v looks like an investigation id rather than a slug
func IsUUID(v string) bool {
	return uuidPattern.MatchString(v)
}

// IsCaseNumber reports whether v is a case number such as "2024-K-004711" or "BW-2024-K-0815-A"
func IsCaseNumber(v string) bool {
	return caseNumberRegex.MatchString(v)
}

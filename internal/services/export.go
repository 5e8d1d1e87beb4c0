package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/fahndung/backend/internal/models"
)

//go:embed templates/export.html.tmpl
var templateFS embed.FS

var exportTemplate = template.Must(template.ParseFS(templateFS, "templates/export.html.tmpl"))

// germanDate is the de-DE short date layout
const germanDate = "02.01.2006"

// Export is a rendered, downloadable investigation document
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

type exportView struct {
	Title            string
	CaseNumber       string
	Priority         models.Priority
	PriorityLabel    string
	ShortDescription string
	Description      string
	Category         models.Category
	Location         string
	Station          string
	Date             string
	Features         string
	Images           []models.Image
	CreatedAt        string
}

// ExportHTML renders a printable HTML document of an investigation
func (s *investigationService) ExportHTML(ctx context.Context, actor Actor, idOrSlug string) (*Export, error) {
	inv, err := s.Get(ctx, actor, idOrSlug)
	if err != nil {
		return nil, err
	}

	view := exportView{
		Title:            inv.Title,
		CaseNumber:       inv.CaseNumber,
		Priority:         inv.Priority,
		PriorityLabel:    inv.Priority.Label(),
		ShortDescription: inv.ShortDescription,
		Description:      inv.Description,
		Category:         inv.Category,
		Location:         inv.Location,
		Station:          inv.Station,
		Features:         inv.Features,
		Images:           inv.Images,
		CreatedAt:        inv.CreatedAt.Format(germanDate),
	}
	if inv.Date != nil {
		view.Date = inv.Date.Format(germanDate)
	}

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	return &Export{
		FileName:    fmt.Sprintf("fahndung-%s.html", inv.CaseNumber),
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fahndung/backend/internal/middlewares"
	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadBytes bounds multipart image uploads
const maxUploadBytes = 10 << 20

// InvestigationService is the interface that wraps methods for investigation business logic
type InvestigationService interface {
	// Method List returns one page of investigations matching "params".
	//
	// Callers without edit permission only see published investigations.
	// Unknown categories or statuses are reported as services.ErrValidation.
	List(ctx context.Context, actor services.Actor, params services.ListParams) (*models.InvestigationPage, error)
	// Method Get returns an investigation with its images by ID or slug.
	//
	// Unpublished investigations are reported as services.ErrNotFound to callers without edit permission.
	Get(ctx context.Context, actor services.Actor, idOrSlug string) (*models.Investigation, error)
	// Method Create stores a new draft investigation with a generated case number (unless given) and a unique slug.
	Create(ctx context.Context, actor services.Actor, input models.InvestigationInput) (*models.Investigation, error)
	// Method Update replaces the writable fields of an investigation.
	//
	// A changed title produces a new slug.
	Update(ctx context.Context, actor services.Actor, id string, input models.InvestigationInput) (*models.Investigation, error)
	// Method SetPublished publishes or withdraws an investigation.
	SetPublished(ctx context.Context, actor services.Actor, id string, published bool) error
	// Method Delete removes an investigation together with its images.
	Delete(ctx context.Context, actor services.Actor, id string) error
	// Method AddImage stores an uploaded image and attaches it to an investigation.
	AddImage(ctx context.Context, actor services.Actor, investigationID string, upload services.ImageUpload) (*models.Image, error)
	// Method DeleteImage removes an image and its file.
	DeleteImage(ctx context.Context, actor services.Actor, imageID string) error
	// Method OpenImage opens the file of an investigation image.
	//
	// Unknown or invalid names are reported as services.ErrNotFound.
	OpenImage(investigationID, fileName string) (*os.File, error)
	// Method ExportHTML renders an investigation as a standalone HTML document.
	ExportHTML(ctx context.Context, actor services.Actor, idOrSlug string) (*services.Export, error)
}

// InvestigationHandler handles HTTP requests for investigations and their images
type InvestigationHandler struct {
	BaseHandler
	service InvestigationService
}

// NewInvestigationHandler creates a new investigation handler
func NewInvestigationHandler(svc InvestigationService, logger *zap.Logger) *InvestigationHandler {
	return &InvestigationHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all investigation handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *InvestigationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/investigations", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/export", h.Export)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireRole(models.RoleEditor))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Post("/{id}/publish", h.Publish)
			r.Post("/{id}/unpublish", h.Unpublish)
			r.Post("/{id}/images", h.UploadImage)
		})

		r.With(middlewares.RequireRole(models.RoleAdmin)).Delete("/{id}", h.Delete)
	})

	r.With(middlewares.RequireRole(models.RoleEditor)).Delete("/images/{id}", h.DeleteImage)
}

// RegisterMediaRoutes registers the public image file route at the router root
func (h *InvestigationHandler) RegisterMediaRoutes(r chi.Router) {
	r.Get("/media/investigations/{id}/{file}", h.ServeImage)
}

// List handles GET /api/v1/investigations
// @Summary List investigations
// @Description Get one page of investigations. Visitors without edit permission only see published ones.
// @Tags investigations
// @Produce json
// @Param category query string false "Category: MISSING_PERSON, WANTED_PERSON, STOLEN_GOODS or UNKNOWN_DEAD"
// @Param status query string false "Status: draft, active, published or archived"
// @Param search query string false "Search in title and case number"
// @Param page query int false "Page number, default: 1"
// @Param per_page query int false "Items per page, default: 12, max: 100"
// @Success 200 {object} models.InvestigationPage
// @Failure 400 {object} map[string]string "Invalid filter"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/investigations [get]
func (h *InvestigationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := services.ListParams{
		Category: models.Category(query.Get("category")),
		Status:   models.Status(query.Get("status")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			params.Page = p
		}
	}
	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if c, err := strconv.Atoi(perPageStr); err == nil && c > 0 {
			params.PerPage = c
		}
	}

	page, err := h.service.List(r.Context(), actor(r), params)
	if err != nil {
		h.respondServiceError(w, err, "list investigations")
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/investigations/{id}
// @Summary Get investigation
// @Description Get an investigation with its images by ID or slug
// @Tags investigations
// @Produce json
// @Param id path string true "Investigation ID or slug"
// @Success 200 {object} models.Investigation
// @Failure 404 {object} map[string]string "Investigation not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/investigations/{id} [get]
func (h *InvestigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	investigation, err := h.service.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err, "get investigation")
		return
	}

	h.respondJSON(w, http.StatusOK, investigation)
}

// Export handles GET /api/v1/investigations/{id}/export
// @Summary Export investigation
// @Description Download an investigation as a standalone HTML document
// @Tags investigations
// @Produce html
// @Param id path string true "Investigation ID or slug"
// @Success 200 {file} file "HTML document"
// @Failure 404 {object} map[string]string "Investigation not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/v1/investigations/{id}/export [get]
func (h *InvestigationHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, err := h.service.ExportHTML(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err, "export investigation")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Body); err != nil {
		h.logger.Error("failed to write export", zap.Error(err))
	}
}

// Create handles POST /api/v1/investigations
// @Summary Create investigation
// @Description Create a draft investigation. A case number is generated when none is given.
// @Tags investigations
// @Accept json
// @Produce json
// @Param request body models.InvestigationInput true "Investigation"
// @Success 201 {object} models.Investigation
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 409 {object} map[string]string "Case number taken"
// @Router /api/v1/investigations [post]
func (h *InvestigationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.InvestigationInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	investigation, err := h.service.Create(r.Context(), actor(r), input)
	if err != nil {
		h.respondServiceError(w, err, "create investigation")
		return
	}

	h.respondJSON(w, http.StatusCreated, investigation)
}

// Update handles PUT /api/v1/investigations/{id}
// @Summary Update investigation
// @Description Replace the writable fields of an investigation
// @Tags investigations
// @Accept json
// @Produce json
// @Param id path string true "Investigation ID"
// @Param request body models.InvestigationInput true "Investigation"
// @Success 200 {object} models.Investigation
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Investigation not found"
// @Failure 409 {object} map[string]string "Case number taken"
// @Router /api/v1/investigations/{id} [put]
func (h *InvestigationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input models.InvestigationInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	investigation, err := h.service.Update(r.Context(), actor(r), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondServiceError(w, err, "update investigation")
		return
	}

	h.respondJSON(w, http.StatusOK, investigation)
}

// Publish handles POST /api/v1/investigations/{id}/publish
// @Summary Publish investigation
// @Tags investigations
// @Produce json
// @Param id path string true "Investigation ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Investigation not found"
// @Router /api/v1/investigations/{id}/publish [post]
func (h *InvestigationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish handles POST /api/v1/investigations/{id}/unpublish
// @Summary Withdraw investigation
// @Tags investigations
// @Produce json
// @Param id path string true "Investigation ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Investigation not found"
// @Router /api/v1/investigations/{id}/unpublish [post]
func (h *InvestigationHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *InvestigationHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	if err := h.service.SetPublished(r.Context(), actor(r), chi.URLParam(r, "id"), published); err != nil {
		h.respondServiceError(w, err, "change publication")
		return
	}

	status := models.StatusDraft
	if published {
		status = models.StatusPublished
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Delete handles DELETE /api/v1/investigations/{id}
// @Summary Delete investigation
// @Description Delete an investigation with all its images. Requires admin.
// @Tags investigations
// @Param id path string true "Investigation ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 404 {object} map[string]string "Investigation not found"
// @Router /api/v1/investigations/{id} [delete]
func (h *InvestigationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err, "delete investigation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/v1/investigations/{id}/images
// @Summary Upload image
// @Description Attach an image to an investigation. Allowed types: jpg, jpeg, png, gif, webp.
// @Tags investigations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Investigation ID"
// @Param file formData file true "Image file"
// @Param alt_text formData string false "Alternative text"
// @Param caption formData string false "Caption"
// @Success 201 {object} models.Image
// @Failure 400 {object} map[string]string "Invalid file"
// @Failure 404 {object} map[string]string "Investigation not found"
// @Router /api/v1/investigations/{id}/images [post]
func (h *InvestigationHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Debug("failed to parse multipart form", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	image, err := h.service.AddImage(r.Context(), actor(r), chi.URLParam(r, "id"), services.ImageUpload{
		Reader:   file,
		FileName: header.Filename,
		AltText:  r.FormValue("alt_text"),
		Caption:  r.FormValue("caption"),
	})
	if err != nil {
		h.respondServiceError(w, err, "upload image")
		return
	}

	h.respondJSON(w, http.StatusCreated, image)
}

// DeleteImage handles DELETE /api/v1/images/{id}
// @Summary Delete image
// @Tags investigations
// @Param id path string true "Image ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Image not found"
// @Router /api/v1/images/{id} [delete]
func (h *InvestigationHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteImage(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err, "delete image")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ServeImage handles GET /media/investigations/{id}/{file}
// @Summary Download image
// @Description Download an investigation image. Supports range requests.
// @Tags media
// @Produce octet-stream
// @Param id path string true "Investigation ID"
// @Param file path string true "File name"
// @Success 200 "File content"
// @Failure 404 {object} map[string]string "File not found"
// @Router /media/investigations/{id}/{file} [get]
func (h *InvestigationHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "file")

	file, err := h.service.OpenImage(chi.URLParam(r, "id"), fileName)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("failed to open image", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		h.logger.Error("failed to get file info", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to get file info")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, fileName, fileInfo.ModTime(), file)
}

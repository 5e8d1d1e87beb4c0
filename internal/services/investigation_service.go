package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvestigationRepository is the interface that wraps methods for investigations table data access
type InvestigationRepository interface {
	// Method List retrieves one page of investigations matching filter.
	//
	// Returns the page and the total number of matching rows.
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	List(ctx context.Context, filter models.InvestigationFilter) ([]models.Investigation, int, error)
	// Method GetByID retrieves an investigation by its ID.
	//
	// If the investigation does not exist, models.ErrNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Investigation, error)
	// Method GetBySlug retrieves an investigation by its slug.
	//
	// Please reference GetByID method for error values.
	GetBySlug(ctx context.Context, slug string) (*models.Investigation, error)
	// Method SlugExists checks whether any investigation uses "slug".
	SlugExists(ctx context.Context, slug string) (bool, error)
	// Method CaseNumberExists checks whether any investigation uses "caseNumber".
	CaseNumberExists(ctx context.Context, caseNumber string) (bool, error)
	// Method Create inserts a new investigation.
	Create(ctx context.Context, inv *models.Investigation) error
	// Method Update stores the writable fields of an existing investigation.
	//
	// If the investigation does not exist, models.ErrNotFound will be returned.
	Update(ctx context.Context, inv *models.Investigation) error
	// Method UpdateStatus changes status and publication time of an investigation.
	//
	// If the investigation does not exist, models.ErrNotFound will be returned.
	UpdateStatus(ctx context.Context, id string, status models.Status, publishedAt *time.Time) error
	// Method Delete deletes an investigation together with its image rows.
	//
	// If the investigation does not exist, models.ErrNotFound will be returned.
	Delete(ctx context.Context, id string) error
}

// ImageRepository is the interface that wraps methods for investigation_images table data access
type ImageRepository interface {
	// Method ListByInvestigation retrieves the images of an investigation in upload order.
	ListByInvestigation(ctx context.Context, investigationID string) ([]models.Image, error)
	// Method GetByID retrieves image metadata by ID.
	//
	// If the image does not exist, models.ErrNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Image, error)
	// Method Create inserts image metadata.
	Create(ctx context.Context, img *models.Image) error
	// Method Delete removes image metadata by ID.
	Delete(ctx context.Context, id string) error
}

// Storage defines the interface for image file storage
type Storage interface {
	// Create creates a new file and returns a WriteCloser.
	// The file path is generated based on id and mediaType.
	Create(id, mediaType string) (io.WriteCloser, error)
	// OpenFile opens a file for use with http.ServeContent
	OpenFile(id, mediaType string) (*os.File, error)
	// Delete removes a file
	Delete(id, mediaType string) error
	// DeleteAll removes every file stored under mediaType
	DeleteAll(mediaType string) error
}

const (
	maxTitleLength     = 255
	maxSlugAttempts    = 100
	maxCaseNumberTries = 10
)

// categoryLetters are the letters used in generated case numbers
var categoryLetters = map[models.Category]byte{
	models.CategoryMissingPerson: 'V',
	models.CategoryWantedPerson:  'F',
	models.CategoryStolenGoods:   'S',
	models.CategoryUnknownDead:   'T',
}

// ListParams are the query parameters of an investigation listing
type ListParams struct {
	Category models.Category
	Status   models.Status
	Search   string
	Page     int
	PerPage  int
}

// ImageUpload is an image file received from a client
type ImageUpload struct {
	Reader   io.Reader
	FileName string
	AltText  string
	Caption  string
}

type investigationService struct {
	repo         InvestigationRepository
	imageRepo    ImageRepository
	storage      Storage
	mediaBaseURL string
	logger       *zap.Logger
	now          func() time.Time
}

// NewInvestigationService creates a new investigation service
func NewInvestigationService(
	repo InvestigationRepository,
	imageRepo ImageRepository,
	storage Storage,
	mediaBaseURL string,
	logger *zap.Logger,
) *investigationService {
	return &investigationService{
		repo:         repo,
		imageRepo:    imageRepo,
		storage:      storage,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
		logger:       logger,
		now:          time.Now,
	}
}

// List returns one page of investigations.
//
// Callers without edit permission only ever see published investigations, whatever status they ask for.
func (s *investigationService) List(ctx context.Context, actor Actor, params ListParams) (*models.InvestigationPage, error) {
	if params.Category != "" && !params.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, params.Category)
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, params.Status)
	}
	if !actor.Permissions().CanEdit {
		params.Status = models.StatusPublished
	}

	page, perPage := normalizePage(params.Page, params.PerPage)
	filter := models.InvestigationFilter{
		Category: params.Category,
		Status:   params.Status,
		Search:   strings.TrimSpace(params.Search),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list investigations", zap.Error(err))
		return nil, fmt.Errorf("failed to list investigations: %w", err)
	}

	totalPages := TotalPages(total, perPage)
	return &models.InvestigationPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		Pages:      PageRange(page, totalPages, siblingCount),
	}, nil
}

// Get retrieves an investigation by ID or slug with its images.
// Unpublished investigations are reported as not found to callers without edit permission.
func (s *investigationService) Get(ctx context.Context, actor Actor, idOrSlug string) (*models.Investigation, error) {
	inv, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if inv.Status != models.StatusPublished && !actor.Permissions().CanEdit {
		return nil, ErrNotFound
	}

	images, err := s.imageRepo.ListByInvestigation(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get images: %w", err)
	}
	inv.Images = images

	return inv, nil
}

func (s *investigationService) lookup(ctx context.Context, idOrSlug string) (*models.Investigation, error) {
	if IsUUID(idOrSlug) {
		return s.repo.GetByID(ctx, strings.ToLower(idOrSlug))
	}
	if !ValidateSlug(idOrSlug) {
		return nil, ErrNotFound
	}
	return s.repo.GetBySlug(ctx, idOrSlug)
}

// Create validates input and stores a new draft investigation.
// A missing case number is generated; the slug is derived from the title and made unique.
func (s *investigationService) Create(ctx context.Context, actor Actor, input models.InvestigationInput) (*models.Investigation, error) {
	if !actor.Permissions().CanCreate {
		return nil, ErrForbidden
	}

	inv := &models.Investigation{}
	if err := applyInput(inv, input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if inv.CaseNumber == "" {
		caseNumber, err := s.generateCaseNumber(ctx, inv.Category, now)
		if err != nil {
			return nil, err
		}
		inv.CaseNumber = caseNumber
	} else if err := s.ensureCaseNumberFree(ctx, inv.CaseNumber); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, inv.Title, inv.CaseNumber, "")
	if err != nil {
		return nil, err
	}

	inv.ID = uuid.New().String()
	inv.Slug = slug
	inv.Status = models.StatusDraft
	inv.CreatedBy = actor.UserID
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create investigation: %w", err)
	}

	s.logger.Info("investigation created",
		zap.String("id", inv.ID),
		zap.String("case_number", inv.CaseNumber),
		zap.String("created_by", actor.UserID),
	)
	return inv, nil
}

// Update replaces the writable fields of an investigation.
// A changed title yields a new slug.
func (s *investigationService) Update(ctx context.Context, actor Actor, id string, input models.InvestigationInput) (*models.Investigation, error) {
	if !actor.Permissions().CanEdit {
		return nil, ErrForbidden
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousTitle := inv.Title
	previousCaseNumber := inv.CaseNumber

	if err := applyInput(inv, input); err != nil {
		return nil, err
	}
	if inv.CaseNumber == "" {
		inv.CaseNumber = previousCaseNumber
	}
	if inv.CaseNumber != previousCaseNumber {
		if err := s.ensureCaseNumberFree(ctx, inv.CaseNumber); err != nil {
			return nil, err
		}
	}
	if inv.Title != previousTitle {
		slug, err := s.uniqueSlug(ctx, inv.Title, inv.CaseNumber, inv.Slug)
		if err != nil {
			return nil, err
		}
		inv.Slug = slug
	}
	inv.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to update investigation: %w", err)
	}

	return inv, nil
}

// SetPublished publishes an investigation or takes it back to draft
func (s *investigationService) SetPublished(ctx context.Context, actor Actor, id string, published bool) error {
	if !actor.Permissions().CanPublish {
		return ErrForbidden
	}

	status := models.StatusDraft
	var publishedAt *time.Time
	if published {
		status = models.StatusPublished
		now := s.now().UTC()
		publishedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, status, publishedAt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update status: %w", err)
	}

	s.logger.Info("investigation status changed", zap.String("id", id), zap.String("status", string(status)))
	return nil
}

// Delete removes an investigation, its image rows and its image files
func (s *investigationService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Permissions().CanDelete {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete investigation: %w", err)
	}

	// Rows are gone already; leftover files are only logged
	if err := s.storage.DeleteAll(imageMediaType(id)); err != nil {
		s.logger.Warn("failed to delete image files", zap.String("investigation_id", id), zap.Error(err))
	}

	s.logger.Info("investigation deleted", zap.String("id", id))
	return nil
}

// AddImage stores an uploaded image file and its metadata
func (s *investigationService) AddImage(ctx context.Context, actor Actor, investigationID string, upload ImageUpload) (*models.Image, error) {
	if !actor.Permissions().CanEdit {
		return nil, ErrForbidden
	}

	ext, ok := storage.ImageExtension(upload.FileName)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrValidation, upload.FileName)
	}

	if _, err := s.repo.GetByID(ctx, investigationID); err != nil {
		return nil, err
	}

	fileName := storage.GenerateFileName(ext)
	mediaType := imageMediaType(investigationID)

	sizeWriter := storage.NewSizeWriter()
	teeReader := io.TeeReader(upload.Reader, sizeWriter)

	writeCloser, err := s.storage.Create(fileName, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(writeCloser, teeReader); err != nil {
		writeCloser.Close()
		s.storage.Delete(fileName, mediaType)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := writeCloser.Close(); err != nil {
		s.storage.Delete(fileName, mediaType)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	img := &models.Image{
		ID:              uuid.New().String(),
		InvestigationID: investigationID,
		FileName:        fileName,
		URL:             fmt.Sprintf("%s/investigations/%s/%s", s.mediaBaseURL, investigationID, fileName),
		AltText:         strings.TrimSpace(upload.AltText),
		Caption:         strings.TrimSpace(upload.Caption),
		Size:            sizeWriter.Size(),
		CreatedAt:       s.now().UTC(),
	}

	if err := s.imageRepo.Create(ctx, img); err != nil {
		s.storage.Delete(fileName, mediaType)
		return nil, fmt.Errorf("failed to create image: %w", err)
	}

	return img, nil
}

// DeleteImage removes an image file and its metadata
func (s *investigationService) DeleteImage(ctx context.Context, actor Actor, imageID string) error {
	if !actor.Permissions().CanEdit {
		return ErrForbidden
	}

	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return err
	}

	if err := s.imageRepo.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	if err := s.storage.Delete(img.FileName, imageMediaType(img.InvestigationID)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete image file", zap.String("image_id", imageID), zap.Error(err))
	}

	return nil
}

// OpenImage opens a stored image file for serving
func (s *investigationService) OpenImage(investigationID, fileName string) (*os.File, error) {
	f, err := s.storage.OpenFile(fileName, imageMediaType(investigationID))
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, storage.ErrInvalidName) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}

func imageMediaType(investigationID string) string {
	return "investigations_" + investigationID
}

func (s *investigationService) generateCaseNumber(ctx context.Context, category models.Category, now time.Time) (string, error) {
	letter := categoryLetters[category]
	for range maxCaseNumberTries {
		caseNumber := fmt.Sprintf("%d-%c-%06d", now.Year(), letter, rand.IntN(1_000_000))
		exists, err := s.repo.CaseNumberExists(ctx, caseNumber)
		if err != nil {
			return "", fmt.Errorf("failed to check case number: %w", err)
		}
		if !exists {
			return caseNumber, nil
		}
	}
	return "", fmt.Errorf("%w: no free case number found", ErrConflict)
}

func (s *investigationService) ensureCaseNumberFree(ctx context.Context, caseNumber string) error {
	exists, err := s.repo.CaseNumberExists(ctx, caseNumber)
	if err != nil {
		return fmt.Errorf("failed to check case number: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: case number %s", ErrConflict, caseNumber)
	}
	return nil
}

// uniqueSlug derives a slug from title (or the case number for titles without usable characters)
// and appends -2, -3, ... until it is free. current is the slug the investigation already owns.
func (s *investigationService) uniqueSlug(ctx context.Context, title, caseNumber, current string) (string, error) {
	base := ShortSlug(title)
	if !ValidateSlug(base) {
		base = Slugify(caseNumber)
	}

	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		if candidate == current {
			return candidate, nil
		}
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free slug for %q", ErrConflict, base)
}

// applyInput validates input and copies it onto inv
func applyInput(inv *models.Investigation, input models.InvestigationInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	if !input.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	caseNumber := strings.TrimSpace(input.CaseNumber)
	if caseNumber != "" && !IsCaseNumber(caseNumber) {
		return fmt.Errorf("%w: invalid case number %q", ErrValidation, caseNumber)
	}

	var date *time.Time
	if input.Date != "" {
		parsed, err := time.Parse(time.DateOnly, input.Date)
		if err != nil {
			return fmt.Errorf("%w: date must have the form YYYY-MM-DD", ErrValidation)
		}
		date = &parsed
	}

	if input.Latitude != nil && (*input.Latitude < -90 || *input.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrValidation)
	}
	if input.Longitude != nil && (*input.Longitude < -180 || *input.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrValidation)
	}

	contact := models.ContactInfo{
		Person: strings.TrimSpace(input.Contact.Person),
		Phone:  strings.TrimSpace(input.Contact.Phone),
		Email:  strings.TrimSpace(input.Contact.Email),
	}
	if contact.Email != "" {
		if _, err := mail.ParseAddress(contact.Email); err != nil {
			return fmt.Errorf("%w: invalid contact email", ErrValidation)
		}
	}

	inv.Title = title
	inv.CaseNumber = caseNumber
	inv.Category = input.Category
	inv.Priority = priority
	inv.ShortDescription = strings.TrimSpace(input.ShortDescription)
	inv.Description = strings.TrimSpace(input.Description)
	inv.Location = strings.TrimSpace(input.Location)
	inv.Station = strings.TrimSpace(input.Station)
	inv.Features = strings.TrimSpace(input.Features)
	inv.Tags = normalizeTags(input.Tags)
	inv.Date = date
	inv.Latitude = input.Latitude
	inv.Longitude = input.Longitude
	inv.Contact = contact

	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

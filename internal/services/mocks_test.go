package services

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/fahndung/backend/internal/models"
)

// mockInvestigationRepository is a mock implementation of InvestigationRepository
type mockInvestigationRepository struct {
	items       map[string]*models.Investigation
	slugs       map[string]bool
	caseNumbers map[string]bool
	listItems   []models.Investigation
	listTotal   int
	lastFilter  models.InvestigationFilter
	created     *models.Investigation
	updated     *models.Investigation
	status      map[string]models.Status
	publishedAt map[string]*time.Time
	deleted     []string
	err         error
}

func newMockInvestigationRepository(items ...*models.Investigation) *mockInvestigationRepository {
	m := &mockInvestigationRepository{
		items:       make(map[string]*models.Investigation),
		slugs:       make(map[string]bool),
		caseNumbers: make(map[string]bool),
		status:      make(map[string]models.Status),
		publishedAt: make(map[string]*time.Time),
	}
	for _, inv := range items {
		m.items[inv.ID] = inv
		m.slugs[inv.Slug] = true
		m.caseNumbers[inv.CaseNumber] = true
	}
	return m
}

func (m *mockInvestigationRepository) List(ctx context.Context, filter models.InvestigationFilter) ([]models.Investigation, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockInvestigationRepository) GetByID(ctx context.Context, id string) (*models.Investigation, error) {
	if m.err != nil {
		return nil, m.err
	}
	inv, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *mockInvestigationRepository) GetBySlug(ctx context.Context, slug string) (*models.Investigation, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, inv := range m.items {
		if inv.Slug == slug {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockInvestigationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.slugs[slug], nil
}

func (m *mockInvestigationRepository) CaseNumberExists(ctx context.Context, caseNumber string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.caseNumbers[caseNumber], nil
}

func (m *mockInvestigationRepository) Create(ctx context.Context, inv *models.Investigation) error {
	if m.err != nil {
		return m.err
	}
	m.created = inv
	m.items[inv.ID] = inv
	return nil
}

func (m *mockInvestigationRepository) Update(ctx context.Context, inv *models.Investigation) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[inv.ID]; !ok {
		return models.ErrNotFound
	}
	m.updated = inv
	m.items[inv.ID] = inv
	return nil
}

func (m *mockInvestigationRepository) UpdateStatus(ctx context.Context, id string, status models.Status, publishedAt *time.Time) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return models.ErrNotFound
	}
	m.status[id] = status
	m.publishedAt[id] = publishedAt
	return nil
}

func (m *mockInvestigationRepository) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockImageRepository is a mock implementation of ImageRepository
type mockImageRepository struct {
	images    map[string]*models.Image
	created   []*models.Image
	deleted   []string
	createErr error
	err       error
}

func newMockImageRepository(images ...*models.Image) *mockImageRepository {
	m := &mockImageRepository{images: make(map[string]*models.Image)}
	for _, img := range images {
		m.images[img.ID] = img
	}
	return m
}

func (m *mockImageRepository) ListByInvestigation(ctx context.Context, investigationID string) ([]models.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	images := []models.Image{}
	for _, img := range m.images {
		if img.InvestigationID == investigationID {
			images = append(images, *img)
		}
	}
	return images, nil
}

func (m *mockImageRepository) GetByID(ctx context.Context, id string) (*models.Image, error) {
	if m.err != nil {
		return nil, m.err
	}
	img, ok := m.images[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return img, nil
}

func (m *mockImageRepository) Create(ctx context.Context, img *models.Image) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, img)
	m.images[img.ID] = img
	return nil
}

func (m *mockImageRepository) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.images[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.images, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// failingStorage is a Storage whose every operation fails
type failingStorage struct{}

func (failingStorage) Create(id, mediaType string) (io.WriteCloser, error) {
	return nil, errors.New("disk full")
}

func (failingStorage) OpenFile(id, mediaType string) (*os.File, error) {
	return nil, errors.New("io error")
}

func (failingStorage) Delete(id, mediaType string) error {
	return errors.New("io error")
}

func (failingStorage) DeleteAll(mediaType string) error {
	return errors.New("io error")
}

// failingReader fails after returning some bytes
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset")
	}
	r.sent = true
	return copy(p, "partial"), nil
}

// mockUserAdmin is a mock implementation of UserAdmin
type mockUserAdmin struct {
	profiles     []models.Profile
	updated      *models.Profile
	updateErr    error
	deletedID    string
	createdUser  *models.User
	upserted     *models.User
	upsertedRole models.Role
	err          error
}

func (m *mockUserAdmin) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles, nil
}

func (m *mockUserAdmin) UpdateProfileRole(ctx context.Context, userID string, role models.Role) (*models.Profile, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updated = &models.Profile{ID: userID, Role: role}
	return m.updated, nil
}

func (m *mockUserAdmin) DeleteUser(ctx context.Context, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.deletedID = userID
	return nil
}

func (m *mockUserAdmin) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.createdUser = &models.User{ID: "new-user", Email: email}
	return m.createdUser, nil
}

func (m *mockUserAdmin) UpsertProfile(ctx context.Context, user models.User, name string, role models.Role) error {
	if m.err != nil {
		return m.err
	}
	m.upserted = &user
	m.upsertedRole = role
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fahndung/backend/internal/models"
	"go.uber.org/zap"
)

const investigationColumns = `id, title, case_number, slug, category, priority, status, short_description, description,
	location, station, features, tags, incident_date, latitude, longitude,
	contact_person, contact_phone, contact_email, created_by, published_at, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

type investigationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvestigationRepository creates a new investigation repository
func NewInvestigationRepository(db *sql.DB, logger *zap.Logger) *investigationRepository {
	return &investigationRepository{
		db:     db,
		logger: logger,
	}
}

// List returns one page of investigations matching filter and the total number of matches.
// Urgent cases come first, then new ones, each group newest first.
func (r *investigationRepository) List(ctx context.Context, filter models.InvestigationFilter) ([]models.Investigation, int, error) {
	where, args := buildInvestigationWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM investigations " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count investigations", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count investigations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM investigations
		%s
		ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'new' THEN 1 ELSE 2 END, created_at DESC
		LIMIT ? OFFSET ?
	`, investigationColumns, where)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query investigations", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to query investigations: %w", err)
	}
	defer rows.Close()

	investigations := []models.Investigation{}
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			r.logger.Error("failed to scan investigation", zap.Error(err))
			return nil, 0, fmt.Errorf("failed to scan investigation: %w", err)
		}
		investigations = append(investigations, *inv)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return investigations, total, nil
}

func buildInvestigationWhere(filter models.InvestigationFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(title LIKE ? OR case_number LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// GetByID retrieves an investigation by ID
func (r *investigationRepository) GetByID(ctx context.Context, id string) (*models.Investigation, error) {
	return r.getOne(ctx, "id", id)
}

// GetBySlug retrieves an investigation by its slug
func (r *investigationRepository) GetBySlug(ctx context.Context, slug string) (*models.Investigation, error) {
	return r.getOne(ctx, "slug", slug)
}

func (r *investigationRepository) getOne(ctx context.Context, column, value string) (*models.Investigation, error) {
	query := fmt.Sprintf(`SELECT %s FROM investigations WHERE %s = ? LIMIT 1`, investigationColumns, column)

	inv, err := scanInvestigation(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get investigation", zap.String(column, value), zap.Error(err))
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}

	return inv, nil
}

// SlugExists checks whether an investigation already uses slug
func (r *investigationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM investigations WHERE slug = ?)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// CaseNumberExists checks whether an investigation already uses caseNumber
func (r *investigationRepository) CaseNumberExists(ctx context.Context, caseNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM investigations WHERE case_number = ?)`, caseNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check case number existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new investigation
func (r *investigationRepository) Create(ctx context.Context, inv *models.Investigation) error {
	tags, err := encodeTags(inv.Tags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO investigations (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, investigationColumns)

	_, err = r.db.ExecContext(ctx, query,
		inv.ID,
		inv.Title,
		inv.CaseNumber,
		inv.Slug,
		inv.Category,
		inv.Priority,
		inv.Status,
		inv.ShortDescription,
		inv.Description,
		inv.Location,
		inv.Station,
		inv.Features,
		tags,
		nullTime(inv.Date),
		nullFloat(inv.Latitude),
		nullFloat(inv.Longitude),
		inv.Contact.Person,
		inv.Contact.Phone,
		inv.Contact.Email,
		inv.CreatedBy,
		nullTime(inv.PublishedAt),
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create investigation", zap.Error(err))
		return fmt.Errorf("failed to create investigation: %w", err)
	}

	return nil
}

// Update replaces the writable fields of an investigation
func (r *investigationRepository) Update(ctx context.Context, inv *models.Investigation) error {
	tags, err := encodeTags(inv.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE investigations
		SET title = ?, case_number = ?, slug = ?, category = ?, priority = ?, short_description = ?,
			description = ?, location = ?, station = ?, features = ?, tags = ?, incident_date = ?,
			latitude = ?, longitude = ?, contact_person = ?, contact_phone = ?, contact_email = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		inv.Title,
		inv.CaseNumber,
		inv.Slug,
		inv.Category,
		inv.Priority,
		inv.ShortDescription,
		inv.Description,
		inv.Location,
		inv.Station,
		inv.Features,
		tags,
		nullTime(inv.Date),
		nullFloat(inv.Latitude),
		nullFloat(inv.Longitude),
		inv.Contact.Person,
		inv.Contact.Phone,
		inv.Contact.Email,
		inv.UpdatedAt,
		inv.ID,
	)
	if err != nil {
		r.logger.Error("failed to update investigation", zap.String("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to update investigation: %w", err)
	}

	return requireAffected(result)
}

// UpdateStatus changes the status and publication time of an investigation
func (r *investigationRepository) UpdateStatus(ctx context.Context, id string, status models.Status, publishedAt *time.Time) error {
	query := `UPDATE investigations SET status = ?, published_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, nullTime(publishedAt), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("failed to update investigation status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update investigation status: %w", err)
	}

	return requireAffected(result)
}

// Delete deletes an investigation; its images go with it
func (r *investigationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM investigations WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete investigation", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete investigation: %w", err)
	}

	return requireAffected(result)
}

func scanInvestigation(row rowScanner) (*models.Investigation, error) {
	var inv models.Investigation
	var tags sql.NullString
	var date, publishedAt sql.NullTime
	var latitude, longitude sql.NullFloat64

	err := row.Scan(
		&inv.ID,
		&inv.Title,
		&inv.CaseNumber,
		&inv.Slug,
		&inv.Category,
		&inv.Priority,
		&inv.Status,
		&inv.ShortDescription,
		&inv.Description,
		&inv.Location,
		&inv.Station,
		&inv.Features,
		&tags,
		&date,
		&latitude,
		&longitude,
		&inv.Contact.Person,
		&inv.Contact.Phone,
		&inv.Contact.Email,
		&inv.CreatedBy,
		&publishedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Tags = []string{}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &inv.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if date.Valid {
		inv.Date = &date.Time
	}
	if publishedAt.Valid {
		inv.PublishedAt = &publishedAt.Time
	}
	if latitude.Valid {
		inv.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		inv.Longitude = &longitude.Float64
	}

	return &inv, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(encoded), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// requireAffected maps an update or delete that touched no row to models.ErrNotFound
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

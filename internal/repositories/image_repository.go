package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fahndung/backend/internal/models"
	"go.uber.org/zap"
)

type imageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *sql.DB, logger *zap.Logger) *imageRepository {
	return &imageRepository{
		db:     db,
		logger: logger,
	}
}

// ListByInvestigation returns the images of an investigation in upload order
func (r *imageRepository) ListByInvestigation(ctx context.Context, investigationID string) ([]models.Image, error) {
	query := `
		SELECT id, investigation_id, file_name, url, alt_text, caption, size, created_at
		FROM investigation_images
		WHERE investigation_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, investigationID)
	if err != nil {
		r.logger.Error("failed to query images", zap.String("investigation_id", investigationID), zap.Error(err))
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.InvestigationID, &img.FileName, &img.URL, &img.AltText, &img.Caption, &img.Size, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return images, nil
}

// GetByID retrieves an image by ID
func (r *imageRepository) GetByID(ctx context.Context, id string) (*models.Image, error) {
	query := `
		SELECT id, investigation_id, file_name, url, alt_text, caption, size, created_at
		FROM investigation_images
		WHERE id = ?
	`

	var img models.Image
	err := r.db.QueryRowContext(ctx, query, id).Scan(&img.ID, &img.InvestigationID, &img.FileName, &img.URL, &img.AltText, &img.Caption, &img.Size, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &img, nil
}

// Create inserts image metadata
func (r *imageRepository) Create(ctx context.Context, img *models.Image) error {
	query := `
		INSERT INTO investigation_images (id, investigation_id, file_name, url, alt_text, caption, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, img.ID, img.InvestigationID, img.FileName, img.URL, img.AltText, img.Caption, img.Size, img.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create image", zap.String("investigation_id", img.InvestigationID), zap.Error(err))
		return fmt.Errorf("failed to create image: %w", err)
	}

	return nil
}

// Delete removes image metadata by ID
func (r *imageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM investigation_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return requireAffected(result)
}

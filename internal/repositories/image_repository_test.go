package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fahndung/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var imageColumnNames = []string{"id", "investigation_id", "file_name", "url", "alt_text", "caption", "size", "created_at"}

// setupImageTestRepository creates an image repository with a mock database
func setupImageTestRepository(t *testing.T) (*imageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewImageRepository(db, zap.NewNop())

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestNewImageRepository(t *testing.T) {
	logger := zap.NewNop()
	db := &sql.DB{}

	repo := NewImageRepository(db, logger)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, logger, repo.logger)
}

func TestImageRepository_ListByInvestigation(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedCount int
	}{
		{
			name: "two images",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(imageColumnNames).
					AddRow("img-1", "inv-1", "a.jpg", "/media/investigations/inv-1/a.jpg", "Foto", "", 1024, testCreatedAt).
					AddRow("img-2", "inv-1", "b.png", "/media/investigations/inv-1/b.png", "", "Phantombild", 2048, testCreatedAt)
				mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images WHERE investigation_id = \? ORDER BY created_at, id`).
					WithArgs("inv-1").
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "no images",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images`).
					WithArgs("inv-1").
					WillReturnRows(sqlmock.NewRows(imageColumnNames))
			},
			expectedCount: 0,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images`).
					WithArgs("inv-1").
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
		{
			name: "row error",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(imageColumnNames).
					AddRow("img-1", "inv-1", "a.jpg", "/media/a.jpg", "", "", 1, testCreatedAt).
					RowError(0, errors.New("row error"))
				mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images`).
					WithArgs("inv-1").
					WillReturnRows(rows)
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupImageTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			images, err := repo.ListByInvestigation(context.Background(), "inv-1")

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, images)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, images)
				assert.Len(t, images, tt.expectedCount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestImageRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupImageTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images WHERE id = \?`).
		WithArgs("img-1").
		WillReturnRows(sqlmock.NewRows(imageColumnNames).
			AddRow("img-1", "inv-1", "a.jpg", "/media/investigations/inv-1/a.jpg", "Foto", "", 1024, testCreatedAt))
	mock.ExpectQuery(`SELECT id, investigation_id, .* FROM investigation_images WHERE id = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	img, err := repo.GetByID(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", img.InvestigationID)
	assert.Equal(t, int64(1024), img.Size)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Create(t *testing.T) {
	img := &models.Image{
		ID:              "img-1",
		InvestigationID: "inv-1",
		FileName:        "a.jpg",
		URL:             "/media/investigations/inv-1/a.jpg",
		Size:            1024,
		CreatedAt:       testCreatedAt,
	}

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO investigation_images \(id, investigation_id, file_name, url, alt_text, caption, size, created_at\)`).
					WithArgs("img-1", "inv-1", "a.jpg", "/media/investigations/inv-1/a.jpg", "", "", int64(1024), testCreatedAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "foreign key violation",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO investigation_images`).
					WillReturnError(errors.New("Error 1452: Cannot add or update a child row"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupImageTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), img)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestImageRepository_Delete(t *testing.T) {
	repo, mock, cleanup := setupImageTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM investigation_images WHERE id = \?`).
		WithArgs("img-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM investigation_images WHERE id = \?`).
		WithArgs("img-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "img-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "img-2"), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package uploads

import (
	"context"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/repo"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/angelmondragon/medrec-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository persists image uploads.
type Repository struct {
	repo.Base
}

// NewRepository binds an uploads repository to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts the skeletal upload row with inference fields unset.
func (r *Repository) Create(ctx context.Context, upload *models.ImageUpload) error {
	return r.DB(ctx).Create(upload).Error
}

// Enrichment carries the inference outputs written onto an upload.
type Enrichment struct {
	MedicineID *uuid.UUID
	Confidence float64
	Payload    []byte
}

// ApplyInference writes the detected medicine, confidence and payload in a
// single statement.
func (r *Repository) ApplyInference(ctx context.Context, id uuid.UUID, e Enrichment) error {
	var medicineID any
	if e.MedicineID != nil {
		medicineID = *e.MedicineID
	}
	res := r.DB(ctx).
		Model(&models.ImageUpload{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"detected_medicine_id": medicineID,
			"confidence":           e.Confidence,
			"result_payload":       datatypes.JSON(e.Payload),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOwned loads an upload owned by ownerID with its detected medicine.
// A miss, including an upload owned by someone else, yields (nil, nil).
func (r *Repository) FindOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.ImageUpload, error) {
	return repo.FindOne[models.ImageUpload](r.DB(ctx).
		Preload("DetectedMedicine").
		Where("id = ? AND uploaded_by = ?", id, ownerID))
}

type listQuery struct {
	ownerID *uuid.UUID
	limit   int
	cursor  *pagination.Cursor
}

// List returns uploads newest first, optionally scoped to one owner.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.ImageUpload, error) {
	tx := r.DB(ctx).Preload("DetectedMedicine")
	if q.ownerID != nil {
		tx = tx.Where("uploaded_by = ?", *q.ownerID)
	}
	if q.cursor != nil {
		tx = tx.Where("(created_at < ? OR (created_at = ? AND id < ?))", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.ImageUpload
	err := tx.
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingInference returns uploads created before the cutoff that never
// received an inference result, oldest first.
func (r *Repository) ListPendingInference(ctx context.Context, before time.Time, limit int) ([]models.ImageUpload, error) {
	var rows []models.ImageUpload
	err := r.DB(ctx).
		Scopes(repo.CreatedBefore(before), repo.Page(0, limit)).
		Where("result_payload IS NULL").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCreatedBefore returns uploads older than the cutoff, oldest first.
func (r *Repository) ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]models.ImageUpload, error) {
	var rows []models.ImageUpload
	err := r.DB(ctx).
		Scopes(repo.CreatedBefore(before), repo.Page(0, limit)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByIDs removes the listed upload rows.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("id IN ?", ids).Delete(&models.ImageUpload{})
	return res.RowsAffected, res.Error
}

package catalog

import (
	"context"
	"errors"

	"github.com/angelmondragon/medrec-backend/internal/repo"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes medicine persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository binds a catalog repository to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository that issues its queries on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// FindActiveByCode returns the active medicine with exactly the given code.
// A miss yields (nil, nil).
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*models.Medicine, error) {
	return repo.FindOne[models.Medicine](r.DB(ctx).Scopes(repo.Active).Where("code = ?", code))
}

// FindByCode returns the medicine with the given code regardless of activity.
// A miss yields (nil, nil).
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Medicine, error) {
	return repo.FindOne[models.Medicine](r.DB(ctx).Where("code = ?", code))
}

// ListActive returns a page of active medicines ordered by code plus the
// total number of active medicines.
func (r *Repository) ListActive(ctx context.Context, offset, limit int) ([]models.Medicine, int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.Medicine{}).Scopes(repo.Active).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Medicine
	err := r.DB(ctx).
		Scopes(repo.Active, repo.Page(offset, limit)).
		Order("code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

var searchColumns = []string{"code", "name_ar", "name_en", "scientific_name", "category"}

// SearchActive returns active medicines where any searchable column contains
// query, case-insensitively.
func (r *Repository) SearchActive(ctx context.Context, query string, limit int) ([]models.Medicine, error) {
	var rows []models.Medicine
	err := r.DB(ctx).
		Scopes(repo.Active, repo.ContainsAny(query, searchColumns...)).
		Order("code ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a medicine. is_active carries a column default, so an
// inactive record is written in a second statement.
func (r *Repository) Create(ctx context.Context, med *models.Medicine) error {
	active := med.IsActive
	if err := r.DB(ctx).Create(med).Error; err != nil {
		return err
	}
	if !active {
		if err := r.DB(ctx).Model(med).UpdateColumn("is_active", false).Error; err != nil {
			return err
		}
		med.IsActive = false
	}
	return nil
}

// Save persists every column of an existing medicine.
func (r *Repository) Save(ctx context.Context, med *models.Medicine) error {
	return r.DB(ctx).Save(med).Error
}

// DeleteByCode removes the medicine and reports whether a row was deleted.
// Uploads that matched it keep their payload and lose the link. The link is
// cleared here as well as by the foreign key, which SQLite only enforces when
// the connection enables it.
func (r *Repository) DeleteByCode(ctx context.Context, code string) (bool, error) {
	var deleted bool
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var med models.Medicine
		if err := tx.Select("id").Where("code = ?", code).Take(&med).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&models.ImageUpload{}).
			Where("detected_medicine_id = ?", med.ID).
			Update("detected_medicine_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Medicine{}, "id = ?", med.ID)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ListAll returns every medicine ordered by code.
func (r *Repository) ListAll(ctx context.Context) ([]models.Medicine, error) {
	var rows []models.Medicine
	if err := r.DB(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

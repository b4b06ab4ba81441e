package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/inference"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/angelmondragon/medrec-backend/pkg/storage"
	"github.com/google/uuid"
)

// Maintenance covers the background upload operations run by the worker.
type Maintenance interface {
	RetryPending(ctx context.Context, before time.Time, limit int) (*RetryReport, error)
	PurgeBefore(ctx context.Context, before time.Time, limit int) (int, error)
}

// RetryReport summarizes one pass over uploads missing an inference result.
type RetryReport struct {
	Candidates int
	Recognized int
	Failed     int
}

// NewMaintenance constructs the maintenance surface over the same workflow
// Submit uses.
func NewMaintenance(
	repo uploadRepository,
	medicines medicineLookup,
	store storage.Store,
	classifier inference.Classifier,
	validator *inference.Validator,
	cfg config.UploadsConfig,
	logg *logger.Logger,
	m *metrics.RecognitionMetrics,
) (Maintenance, error) {
	svc, err := newService(repo, medicines, store, classifier, validator, cfg, logg, m)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// RetryPending re-runs recognition for uploads created before the cutoff
// whose classification never completed. Per-upload failures are counted and
// left for the next pass.
func (s *service) RetryPending(ctx context.Context, before time.Time, limit int) (*RetryReport, error) {
	rows, err := s.repo.ListPendingInference(ctx, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending uploads: %w", err)
	}

	report := &RetryReport{Candidates: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		uploadCtx := s.logg.WithUploadID(ctx, row.ID.String())
		if _, err := s.recognize(uploadCtx, row.ID, row.ImageKey); err != nil {
			report.Failed++
			continue
		}
		report.Recognized++
	}
	return report, nil
}

// PurgeBefore deletes uploads created before the cutoff along with their
// stored images. Image removal is best effort.
func (s *service) PurgeBefore(ctx context.Context, before time.Time, limit int) (int, error) {
	rows, err := s.repo.ListCreatedBefore(ctx, before, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired uploads: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete expired uploads: %w", err)
	}

	for _, row := range rows {
		if err := s.store.Delete(ctx, row.ImageKey); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"upload_id": row.ID.String(),
				"image_key": row.ImageKey,
				"error":     err.Error(),
			}), "failed to remove expired image")
		}
	}
	return int(deleted), nil
}

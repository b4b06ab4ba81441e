package uploads

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/inference"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/angelmondragon/medrec-backend/pkg/pagination"
	"github.com/angelmondragon/medrec-backend/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type uploadRepository interface {
	Create(ctx context.Context, upload *models.ImageUpload) error
	ApplyInference(ctx context.Context, id uuid.UUID, e Enrichment) error
	FindOwned(ctx context.Context, ownerID, id uuid.UUID) (*models.ImageUpload, error)
	List(ctx context.Context, q listQuery) ([]models.ImageUpload, error)
	ListPendingInference(ctx context.Context, before time.Time, limit int) ([]models.ImageUpload, error)
	ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]models.ImageUpload, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type medicineLookup interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Medicine, error)
}

// Service runs the upload and match workflow and serves upload history.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input ImageInput) (*UploadDTO, error)
	Get(ctx context.Context, userID, uploadID uuid.UUID) (*UploadDTO, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, params AdminListParams) (*ListResult, error)
}

// ImageInput is a received image file.
type ImageInput struct {
	FileName string
	Data     []byte
}

// AdminListParams filters the cross-account upload listing.
type AdminListParams struct {
	UserID     *uuid.UUID
	Pagination pagination.Params
}

type service struct {
	repo       uploadRepository
	medicines  medicineLookup
	store      storage.Store
	classifier inference.Classifier
	validator  *inference.Validator
	logg       *logger.Logger
	metrics    *metrics.RecognitionMetrics
	maxBytes   int64
	now        func() time.Time
}

// NewService constructs the upload workflow service.
func NewService(
	repo uploadRepository,
	medicines medicineLookup,
	store storage.Store,
	classifier inference.Classifier,
	validator *inference.Validator,
	cfg config.UploadsConfig,
	logg *logger.Logger,
	m *metrics.RecognitionMetrics,
) (Service, error) {
	svc, err := newService(repo, medicines, store, classifier, validator, cfg, logg, m)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(
	repo uploadRepository,
	medicines medicineLookup,
	store storage.Store,
	classifier inference.Classifier,
	validator *inference.Validator,
	cfg config.UploadsConfig,
	logg *logger.Logger,
	m *metrics.RecognitionMetrics,
) (*service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine lookup required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier required")
	}
	if validator == nil {
		return nil, fmt.Errorf("inference validator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		medicines:  medicines,
		store:      store,
		classifier: classifier,
		validator:  validator,
		logg:       logg,
		metrics:    m,
		maxBytes:   cfg.MaxBytes(),
		now:        time.Now,
	}, nil
}

// Submit stores the image, records it, classifies it and attaches the active
// catalog entry matching the detected code. A catalog miss leaves the match
// unset. When classification fails the stored image and skeletal record are
// kept and a dependency error is returned.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input ImageInput) (*UploadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	mimeType, err := s.validateImage(input)
	if err != nil {
		s.metrics.IncOutcome(enums.UploadOutcomeRejected)
		return nil, err
	}

	now := s.now().UTC()
	id := uuid.New()
	fileName := storage.SanitizeFileName(input.FileName)
	key := storage.UploadKey(now, id, fileName)
	ctx = s.logg.WithUploadID(ctx, id.String())

	obj, err := s.store.Put(ctx, key, bytes.NewReader(input.Data), storage.PutOptions{
		ContentType: mimeType,
		Size:        int64(len(input.Data)),
	})
	if err != nil {
		s.metrics.IncOutcome(enums.UploadOutcomeStorageFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}

	record := &models.ImageUpload{
		ID:         id,
		UploadedBy: userID,
		ImageKey:   obj.Key,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  int64(len(input.Data)),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			s.logg.Error(ctx, "failed to remove orphaned image", delErr)
		}
		s.metrics.IncOutcome(enums.UploadOutcomeStorageFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist upload")
	}

	rec, err := s.recognize(ctx, id, obj.Key)
	if err != nil {
		return nil, err
	}

	confidence := rec.result.Confidence
	record.DetectedMedicineID = rec.enrichment.MedicineID
	record.DetectedMedicine = rec.medicine
	record.Confidence = &confidence
	record.ResultPayload = datatypes.JSON(rec.enrichment.Payload)

	return toDTO(record, s.imageURL(ctx, record.ImageKey)), nil
}

type recognition struct {
	result     *inference.Result
	medicine   *models.Medicine
	enrichment Enrichment
}

// recognize classifies a stored image, resolves the detected code against the
// active catalog and writes the enrichment onto the upload row.
func (s *service) recognize(ctx context.Context, id uuid.UUID, key string) (*recognition, error) {
	result, payload, err := s.classify(ctx, key)
	if err != nil {
		s.metrics.IncOutcome(enums.UploadOutcomeInferenceFailed)
		s.logg.Error(ctx, "inference failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inference failed")
	}

	med, err := s.medicines.FindActiveByCode(ctx, result.MedicineCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up detected medicine")
	}

	enrichment := Enrichment{Confidence: result.Confidence, Payload: payload}
	if med != nil {
		enrichment.MedicineID = &med.ID
	}
	if err := s.repo.ApplyInference(ctx, id, enrichment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist inference result")
	}

	outcome := enums.UploadOutcomeUnmatched
	if med != nil {
		outcome = enums.UploadOutcomeMatched
	}
	s.metrics.IncOutcome(outcome)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"medicine_code": result.MedicineCode,
		"confidence":    result.Confidence,
		"outcome":       outcome.String(),
	}), "upload recognized")

	return &recognition{result: result, medicine: med, enrichment: enrichment}, nil
}

func (s *service) validateImage(input ImageInput) (string, error) {
	size := int64(len(input.Data))
	if size == 0 {
		return "", pkgerrors.Invalid("image is required", "image", "required")
	}
	if size > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeTooLarge, fmt.Sprintf("image must be at most %d bytes", s.maxBytes)).
			WithDetails(map[string]string{"image": "too large"})
	}
	mimeType, ok := detectImageType(input.Data)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image must be "+allowedImageDescription).
			WithDetails(map[string]string{"image": "unsupported type " + mimeType})
	}
	return mimeType, nil
}

func (s *service) classify(ctx context.Context, key string) (*inference.Result, []byte, error) {
	start := time.Now()
	result, err := s.classifier.Classify(ctx, key)
	s.metrics.ObserveInference(time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	payload, err := s.validator.Encode(result)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid classifier result: %w", err)
	}
	return result, payload, nil
}

func (s *service) Get(ctx context.Context, userID, uploadID uuid.UUID) (*UploadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	upload, err := s.repo.FindOwned(ctx, userID, uploadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload")
	}
	if upload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	return toDTO(upload, s.imageURL(ctx, upload.ImageKey)), nil
}

func (s *service) imageURL(ctx context.Context, key string) string {
	url, err := s.store.URL(ctx, key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "image_key", key), "image url unavailable: "+err.Error())
		return ""
	}
	return url
}

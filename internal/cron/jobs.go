package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/uploads"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
)

const (
	defaultRetryAfter = 5 * time.Minute
	defaultRetryBatch = 50
	defaultPurgeBatch = 200
)

// InferenceRetryJobParams configure the job that re-runs recognition for
// uploads whose classification failed.
type InferenceRetryJobParams struct {
	Logger     *logger.Logger
	Uploads    uploads.Maintenance
	RetryAfter time.Duration
	Batch      int
}

func NewInferenceRetryJob(params InferenceRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("uploads maintenance required")
	}
	retryAfter := params.RetryAfter
	if retryAfter <= 0 {
		retryAfter = defaultRetryAfter
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultRetryBatch
	}
	return &inferenceRetryJob{
		logg:       params.Logger,
		uploads:    params.Uploads,
		retryAfter: retryAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type inferenceRetryJob struct {
	logg       *logger.Logger
	uploads    uploads.Maintenance
	retryAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *inferenceRetryJob) Name() string { return "inference-retry" }

// Run only considers uploads older than retryAfter so a request still inside
// Submit is never picked up.
func (j *inferenceRetryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retryAfter)
	report, err := j.uploads.RetryPending(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("inference retry: %w", err)
	}
	if report.Candidates == 0 {
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": report.Candidates,
		"recognized": report.Recognized,
		"failed":     report.Failed,
	}), "inference retry complete")
	return nil
}

// UploadRetentionJobParams configure the job that deletes expired uploads.
// A non-positive RetentionDays keeps uploads forever.
type UploadRetentionJobParams struct {
	Logger        *logger.Logger
	Uploads       uploads.Maintenance
	RetentionDays int
	Batch         int
}

func NewUploadRetentionJob(params UploadRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Uploads == nil {
		return nil, fmt.Errorf("uploads maintenance required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultPurgeBatch
	}
	return &uploadRetentionJob{
		logg:          params.Logger,
		uploads:       params.Uploads,
		retentionDays: params.RetentionDays,
		batch:         batch,
		now:           time.Now,
	}, nil
}

type uploadRetentionJob struct {
	logg          *logger.Logger
	uploads       uploads.Maintenance
	retentionDays int
	batch         int
	now           func() time.Time
}

func (j *uploadRetentionJob) Name() string { return "upload-retention" }

func (j *uploadRetentionJob) Run(ctx context.Context) error {
	if j.retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().UTC().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)
	deleted, err := j.uploads.PurgeBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("upload retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retentionDays,
		"deleted":        deleted,
	}), "upload retention complete")
	return nil
}

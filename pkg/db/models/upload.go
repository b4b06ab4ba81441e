package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImageUpload records one submitted image and, once inference has run, its
// payload, confidence and optional catalog match.
type ImageUpload struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UploadedBy         uuid.UUID      `gorm:"column:uploaded_by;type:uuid;not null;index:idx_image_uploads_owner_created,priority:1"`
	ImageKey           string         `gorm:"column:image_key;not null;uniqueIndex:image_uploads_image_key_key"`
	FileName           string         `gorm:"column:file_name;not null"`
	MimeType           string         `gorm:"column:mime_type;not null"`
	SizeBytes          int64          `gorm:"column:size_bytes;not null"`
	DetectedMedicineID *uuid.UUID     `gorm:"column:detected_medicine_id;type:uuid;index"`
	DetectedMedicine   *Medicine      `gorm:"foreignKey:DetectedMedicineID;constraint:OnDelete:SET NULL"`
	Confidence         *float64       `gorm:"column:confidence"`
	ResultPayload      datatypes.JSON `gorm:"column:result_payload"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime;index:idx_image_uploads_owner_created,priority:2"`
}

func (ImageUpload) TableName() string {
	return "image_uploads"
}

func (u *ImageUpload) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Inferred reports whether the enrichment step has been applied.
func (u *ImageUpload) Inferred() bool {
	return len(u.ResultPayload) > 0
}

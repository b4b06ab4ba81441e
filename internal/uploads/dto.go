package uploads

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/google/uuid"
)

// UploadDTO is the transport shape of an upload and its recognition result.
type UploadDTO struct {
	ID               uuid.UUID            `json:"id"`
	UploadedBy       uuid.UUID            `json:"uploaded_by"`
	Image            string               `json:"image"`
	ImageURL         string               `json:"image_url,omitempty"`
	FileName         string               `json:"file_name"`
	MimeType         string               `json:"mime_type"`
	SizeBytes        int64                `json:"size_bytes"`
	DetectedMedicine *catalog.MedicineDTO `json:"detected_medicine"`
	Confidence       *float64             `json:"confidence"`
	ResultPayload    json.RawMessage      `json:"result_payload"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ListResult returns a cursor page of uploads.
type ListResult struct {
	Items  []UploadDTO `json:"items"`
	Cursor string      `json:"cursor"`
}

func toDTO(u *models.ImageUpload, imageURL string) *UploadDTO {
	dto := &UploadDTO{
		ID:               u.ID,
		UploadedBy:       u.UploadedBy,
		Image:            u.ImageKey,
		ImageURL:         imageURL,
		FileName:         u.FileName,
		MimeType:         u.MimeType,
		SizeBytes:        u.SizeBytes,
		DetectedMedicine: catalog.FromModel(u.DetectedMedicine),
		Confidence:       u.Confidence,
		CreatedAt:        u.CreatedAt,
	}
	if len(u.ResultPayload) > 0 {
		dto.ResultPayload = json.RawMessage(u.ResultPayload)
	} else {
		dto.ResultPayload = json.RawMessage("null")
	}
	return dto
}

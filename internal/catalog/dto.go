package catalog

import (
	"time"

	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/google/uuid"
)

// MedicineDTO is the read shape returned by catalog endpoints.
type MedicineDTO struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	NameAR         string    `json:"name_ar"`
	NameEN         *string   `json:"name_en"`
	ScientificName *string   `json:"scientific_name"`
	Manufacturer   *string   `json:"manufacturer"`
	DescriptionAR  *string   `json:"description_ar"`
	DescriptionEN  *string   `json:"description_en"`
	Dosage         *string   `json:"dosage"`
	SideEffects    *string   `json:"side_effects"`
	Warnings       *string   `json:"warnings"`
	Category       *string   `json:"category"`
	Price          *string   `json:"price"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListResult is a page of active medicines.
type ListResult struct {
	Items []MedicineDTO `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

// FromModel maps a medicine row to its DTO. Prices render with two decimals.
func FromModel(m *models.Medicine) *MedicineDTO {
	if m == nil {
		return nil
	}
	dto := &MedicineDTO{
		ID:             m.ID,
		Code:           m.Code,
		NameAR:         m.NameAR,
		NameEN:         m.NameEN,
		ScientificName: m.ScientificName,
		Manufacturer:   m.Manufacturer,
		DescriptionAR:  m.DescriptionAR,
		DescriptionEN:  m.DescriptionEN,
		Dosage:         m.Dosage,
		SideEffects:    m.SideEffects,
		Warnings:       m.Warnings,
		Category:       m.Category,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Price != nil {
		price := m.Price.StringFixed(2)
		dto.Price = &price
	}
	return dto
}

func fromModels(rows []models.Medicine) []MedicineDTO {
	out := make([]MedicineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Medicine is a catalog entry addressed externally by its unique code.
type Medicine struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code           string           `gorm:"column:code;type:varchar(50);not null;uniqueIndex:medicines_code_key"`
	NameAR         string           `gorm:"column:name_ar;type:varchar(255);not null"`
	NameEN         *string          `gorm:"column:name_en;type:varchar(255)"`
	ScientificName *string          `gorm:"column:scientific_name;type:varchar(255)"`
	Manufacturer   *string          `gorm:"column:manufacturer;type:varchar(255)"`
	DescriptionAR  *string          `gorm:"column:description_ar"`
	DescriptionEN  *string          `gorm:"column:description_en"`
	Dosage         *string          `gorm:"column:dosage"`
	SideEffects    *string          `gorm:"column:side_effects"`
	Warnings       *string          `gorm:"column:warnings"`
	Category       *string          `gorm:"column:category;type:varchar(100)"`
	Price          *decimal.Decimal `gorm:"column:price;type:numeric(10,2)"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Medicine) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

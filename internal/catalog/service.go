package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

const (
	maxCodeLength     = 50
	maxNameLength     = 255
	maxCategoryLength = 100
	priceMessage      = "must be between 0 and 99999999.99"
)

// maxPrice is the exclusive bound of a numeric(10,2) price.
var maxPrice = decimal.New(1, 8)

func priceInRange(price decimal.Decimal) bool {
	return !price.IsNegative() && price.Round(2).LessThan(maxPrice)
}

// Service exposes catalog reads for clients and catalog administration.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Search(ctx context.Context, query string, limit int) ([]MedicineDTO, error)
	Detail(ctx context.Context, code string) (*MedicineDTO, error)
	Upsert(ctx context.Context, input MedicineInput) (*MedicineDTO, bool, error)
	Update(ctx context.Context, code string, input UpdateInput) (*MedicineDTO, error)
	SetActive(ctx context.Context, code string, active bool) (*MedicineDTO, error)
	Delete(ctx context.Context, code string) error
}

// ListParams holds page based pagination inputs.
type ListParams struct {
	Page  int
	Limit int
}

// MedicineInput is a full medicine definition keyed by code. Blank optional
// fields are stored as null.
type MedicineInput struct {
	Code           string
	NameAR         string
	NameEN         *string
	ScientificName *string
	Manufacturer   *string
	DescriptionAR  *string
	DescriptionEN  *string
	Dosage         *string
	SideEffects    *string
	Warnings       *string
	Category       *string
	Price          *decimal.Decimal
	IsActive       *bool
}

// UpdateInput carries optional field changes. Nil leaves a field untouched.
type UpdateInput struct {
	NameAR         *string
	NameEN         *string
	ScientificName *string
	Manufacturer   *string
	DescriptionAR  *string
	DescriptionEN  *string
	Dosage         *string
	SideEffects    *string
	Warnings       *string
	Category       *string
	Price          *decimal.Decimal
	ClearPrice     bool
	IsActive       *bool
}

type service struct {
	repo          *Repository
	logg          *logger.Logger
	searchDefault int
	searchMax     int
}

// NewService constructs the catalog service.
func NewService(repo *Repository, cfg config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	searchMax := cfg.SearchMaxLimit
	if searchMax <= 0 {
		searchMax = 50
	}
	searchDefault := cfg.SearchDefaultLimit
	if searchDefault <= 0 || searchDefault > searchMax {
		searchDefault = min(20, searchMax)
	}
	return &service{
		repo:          repo,
		logg:          logg,
		searchDefault: searchDefault,
		searchMax:     searchMax,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := pagination.NormalizeOffset(params.Page, params.Limit)

	rows, total, err := s.repo.ListActive(ctx, page.Skip(), page.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list medicines")
	}
	return &ListResult{
		Items: fromModels(rows),
		Page:  page.Page,
		Limit: page.Limit,
		Total: total,
	}, nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]MedicineDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.Invalid("search query is required", "q", "required")
	}
	if limit <= 0 {
		limit = s.searchDefault
	}
	if limit > s.searchMax {
		limit = s.searchMax
	}

	rows, err := s.repo.SearchActive(ctx, query, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search medicines")
	}
	return fromModels(rows), nil
}

func (s *service) Detail(ctx context.Context, code string) (*MedicineDTO, error) {
	med, err := s.repo.FindActiveByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if med == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	return FromModel(med), nil
}

func (s *service) Upsert(ctx context.Context, input MedicineInput) (*MedicineDTO, bool, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.NameAR = strings.TrimSpace(input.NameAR)
	if err := validateMedicineInput(input); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.FindByCode(ctx, input.Code)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}

	if existing == nil {
		med := &models.Medicine{Code: input.Code, IsActive: true}
		applyInput(med, input)
		if err := s.repo.Create(ctx, med); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "medicine code already exists")
			}
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create medicine")
		}
		return FromModel(med), true, nil
	}

	applyInput(existing, input)
	if err := s.repo.Save(ctx, existing); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update medicine")
	}
	return FromModel(existing), false, nil
}

func (s *service) Update(ctx context.Context, code string, input UpdateInput) (*MedicineDTO, error) {
	med, err := s.loadForAdmin(ctx, code)
	if err != nil {
		return nil, err
	}

	if input.NameAR != nil {
		name := strings.TrimSpace(*input.NameAR)
		if name == "" {
			return nil, validationError("name_ar", "required")
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, validationError("name_ar", "too long")
		}
		med.NameAR = name
	}
	if input.Price != nil && !priceInRange(*input.Price) {
		return nil, validationError("price", priceMessage)
	}

	setOptional(&med.NameEN, input.NameEN)
	setOptional(&med.ScientificName, input.ScientificName)
	setOptional(&med.Manufacturer, input.Manufacturer)
	setOptional(&med.DescriptionAR, input.DescriptionAR)
	setOptional(&med.DescriptionEN, input.DescriptionEN)
	setOptional(&med.Dosage, input.Dosage)
	setOptional(&med.SideEffects, input.SideEffects)
	setOptional(&med.Warnings, input.Warnings)
	setOptional(&med.Category, input.Category)
	switch {
	case input.ClearPrice:
		med.Price = nil
	case input.Price != nil:
		price := input.Price.Round(2)
		med.Price = &price
	}
	if input.IsActive != nil {
		med.IsActive = *input.IsActive
	}

	if err := s.repo.Save(ctx, med); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update medicine")
	}
	return FromModel(med), nil
}

func (s *service) SetActive(ctx context.Context, code string, active bool) (*MedicineDTO, error) {
	return s.Update(ctx, code, UpdateInput{IsActive: &active})
}

func (s *service) Delete(ctx context.Context, code string) error {
	deleted, err := s.repo.DeleteByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete medicine")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	s.logg.Info(s.logg.WithField(ctx, "medicine_code", code), "medicine deleted")
	return nil
}

func (s *service) loadForAdmin(ctx context.Context, code string) (*models.Medicine, error) {
	med, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if med == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	return med, nil
}

func validateMedicineInput(input MedicineInput) error {
	details := map[string]string{}
	switch {
	case input.Code == "":
		details["code"] = "required"
	case utf8.RuneCountInString(input.Code) > maxCodeLength:
		details["code"] = "too long"
	}
	switch {
	case input.NameAR == "":
		details["name_ar"] = "required"
	case utf8.RuneCountInString(input.NameAR) > maxNameLength:
		details["name_ar"] = "too long"
	}
	if input.Category != nil && utf8.RuneCountInString(strings.TrimSpace(*input.Category)) > maxCategoryLength {
		details["category"] = "too long"
	}
	if input.Price != nil && !priceInRange(*input.Price) {
		details["price"] = priceMessage
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid medicine").WithDetails(details)
	}
	return nil
}

func validationError(field, reason string) error {
	return pkgerrors.Invalid("invalid medicine", field, reason)
}

// applyInput overwrites every field of med from input, mirroring a full
// replace keyed by code.
func applyInput(med *models.Medicine, input MedicineInput) {
	med.NameAR = input.NameAR
	med.NameEN = normalizeOptional(input.NameEN)
	med.ScientificName = normalizeOptional(input.ScientificName)
	med.Manufacturer = normalizeOptional(input.Manufacturer)
	med.DescriptionAR = normalizeOptional(input.DescriptionAR)
	med.DescriptionEN = normalizeOptional(input.DescriptionEN)
	med.Dosage = normalizeOptional(input.Dosage)
	med.SideEffects = normalizeOptional(input.SideEffects)
	med.Warnings = normalizeOptional(input.Warnings)
	med.Category = normalizeOptional(input.Category)
	med.Price = nil
	if input.Price != nil {
		price := input.Price.Round(2)
		med.Price = &price
	}
	if input.IsActive != nil {
		med.IsActive = *input.IsActive
	}
}

func setOptional(dst **string, value *string) {
	if value == nil {
		return
	}
	*dst = normalizeOptional(value)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

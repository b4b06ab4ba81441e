package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/medrec-backend/api/responses"
	"github.com/angelmondragon/medrec-backend/api/validators"
	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
	maxImportBytes  = 20 << 20
)

var exportContentTypes = map[enums.ImportFormat]string{
	enums.ImportFormatXLSX: xlsxContentType,
	enums.ImportFormatCSV:  csvContentType,
}

type medicineRequest struct {
	Code           string  `json:"code" validate:"required,max=50,medcode"`
	NameAR         string  `json:"name_ar" validate:"required,max=255"`
	NameEN         *string `json:"name_en" validate:"omitempty,max=255"`
	ScientificName *string `json:"scientific_name" validate:"omitempty,max=255"`
	Manufacturer   *string `json:"manufacturer" validate:"omitempty,max=255"`
	DescriptionAR  *string `json:"description_ar"`
	DescriptionEN  *string `json:"description_en"`
	Dosage         *string `json:"dosage"`
	SideEffects    *string `json:"side_effects"`
	Warnings       *string `json:"warnings"`
	Category       *string `json:"category" validate:"omitempty,max=100"`
	Price          *string `json:"price" validate:"omitempty,price"`
	IsActive       *bool   `json:"is_active"`
}

func (m medicineRequest) toInput() (catalog.MedicineInput, error) {
	price, err := parsePrice(m.Price)
	if err != nil {
		return catalog.MedicineInput{}, err
	}
	return catalog.MedicineInput{
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
		Price:          price,
		IsActive:       m.IsActive,
	}, nil
}

type medicinePatchRequest struct {
	NameAR         *string `json:"name_ar" validate:"omitempty,max=255"`
	NameEN         *string `json:"name_en" validate:"omitempty,max=255"`
	ScientificName *string `json:"scientific_name" validate:"omitempty,max=255"`
	Manufacturer   *string `json:"manufacturer" validate:"omitempty,max=255"`
	DescriptionAR  *string `json:"description_ar"`
	DescriptionEN  *string `json:"description_en"`
	Dosage         *string `json:"dosage"`
	SideEffects    *string `json:"side_effects"`
	Warnings       *string `json:"warnings"`
	Category       *string `json:"category" validate:"omitempty,max=100"`
	Price          *string `json:"price" validate:"omitempty,price"`
	ClearPrice     bool    `json:"clear_price"`
	IsActive       *bool   `json:"is_active"`
}

func (m medicinePatchRequest) toInput() (catalog.UpdateInput, error) {
	price, err := parsePrice(m.Price)
	if err != nil {
		return catalog.UpdateInput{}, err
	}
	return catalog.UpdateInput{
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
		Price:          price,
		ClearPrice:     m.ClearPrice,
		IsActive:       m.IsActive,
	}, nil
}

func parsePrice(raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price").
			WithDetails(map[string]string{"price": "must be a decimal number"})
	}
	return &value, nil
}

// AdminMedicineUpsert creates or replaces a medicine keyed by code.
func AdminMedicineUpsert(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}

		var body medicineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		med, created, err := svc.Upsert(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if created {
			responses.WriteCreated(w, med)
			return
		}
		responses.WriteSuccess(w, med)
	}
}

// AdminMedicineUpdate applies partial changes, including activation.
func AdminMedicineUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}

		var body medicinePatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		med, err := svc.Update(r.Context(), chi.URLParam(r, "code"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, med)
	}
}

// AdminMedicineDelete removes a medicine; uploads that matched it keep their
// payload and lose the link.
func AdminMedicineDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog service"))
			return
		}

		code := chi.URLParam(r, "code")
		if err := svc.Delete(r.Context(), code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"code": code, "status": "deleted"})
	}
}

// AdminMedicinesImport upserts every row of an uploaded CSV or XLSX file.
func AdminMedicinesImport(importer *catalog.Importer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if importer == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog importer"))
			return
		}

		file, err := validators.ReadFormFile(w, r, "file", maxImportBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		format := enums.ImportFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
		if format == "" {
			format, err = enums.ImportFormatFromFileName(file.FileName)
		}
		if err != nil || !format.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("unsupported import format", "file", "csv or xlsx required"))
			return
		}

		report, err := importer.ImportFile(r.Context(), format, bytes.NewReader(file.Data))
		if err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "import interrupted")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// AdminMedicinesExport streams the whole catalog as XLSX (default) or CSV.
func AdminMedicinesExport(exporter *catalog.Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if exporter == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog exporter"))
			return
		}

		format := enums.ImportFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
		if format == "" {
			format = enums.ImportFormatXLSX
		}
		contentType, ok := exportContentTypes[format]
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("unsupported export format", "format", "csv or xlsx required"))
			return
		}

		var buf bytes.Buffer
		if err := exporter.Write(r.Context(), format, &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "export catalog"))
			return
		}

		name := fmt.Sprintf("medicines-%s.%s", time.Now().UTC().Format("20060102"), format)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

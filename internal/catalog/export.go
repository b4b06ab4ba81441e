package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

const exportSheet = "Medicines"

// Exporter writes the full catalog as a workbook that ReadXLSX accepts back.
type Exporter struct {
	repo *Repository
}

// NewExporter constructs an exporter over the catalog repository.
func NewExporter(repo *Repository) (*Exporter, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Exporter{repo: repo}, nil
}

// Write encodes the catalog in format. Both encodings carry the import
// columns followed by is_active, so an export re-imports unchanged.
func (e *Exporter) Write(ctx context.Context, format enums.ImportFormat, w io.Writer) error {
	switch format {
	case enums.ImportFormatCSV:
		return e.WriteCSV(ctx, w)
	case enums.ImportFormatXLSX:
		return e.WriteXLSX(ctx, w)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV streams every medicine, active or not, as UTF-8 CSV.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := e.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("query medicines: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders()); err != nil {
		return err
	}
	for idx := range rows {
		if err := cw.Write(exportValues(&rows[idx])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX streams every medicine, active or not, to w. An is_active column
// follows the import columns.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer) (err error) {
	rows, err := e.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("query medicines: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	for i, h := range exportHeaders() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	for idx := range rows {
		values := exportValues(&rows[idx])
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, idx+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "B", "D", 28); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func exportHeaders() []string {
	return append(append([]string{}, ImportColumns...), "is_active")
}

func exportValues(m *models.Medicine) []string {
	price := ""
	if m.Price != nil {
		price = m.Price.StringFixed(2)
	}
	active := "false"
	if m.IsActive {
		active = "true"
	}
	return []string{
		m.Code,
		m.NameAR,
		deref(m.NameEN),
		deref(m.ScientificName),
		deref(m.Manufacturer),
		deref(m.DescriptionAR),
		deref(m.DescriptionEN),
		deref(m.Dosage),
		deref(m.SideEffects),
		deref(m.Warnings),
		deref(m.Category),
		price,
		active,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

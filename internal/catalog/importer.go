package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/medrec-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// ImportColumns lists the recognized header names in file order. An optional
// is_active column is also honored.
var ImportColumns = []string{
	"code",
	"name_ar",
	"name_en",
	"scientific_name",
	"manufacturer",
	"description_ar",
	"description_en",
	"dosage",
	"side_effects",
	"warnings",
	"category",
	"price",
}

// Row is one parsed record of an import file. Line is the 1-based source
// line (the header is line 1).
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

func (r Row) optional(column string) *string {
	value := r.get(column)
	if value == "" {
		return nil
	}
	return &value
}

// RowIssue describes a skipped row or a recoverable problem in a row.
type RowIssue struct {
	Line    int    `json:"line"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarizes an import run.
type ImportReport struct {
	Created  int        `json:"created"`
	Updated  int        `json:"updated"`
	Errors   int        `json:"errors"`
	Failures []RowIssue `json:"failures"`
	Warnings []RowIssue `json:"warnings"`
}

// Importer upserts tabular medicine rows by code.
type Importer struct {
	svc     Service
	logg    *logger.Logger
	metrics *metrics.ImportMetrics
}

// NewImporter constructs an importer backed by the catalog service.
func NewImporter(svc Service, logg *logger.Logger, m *metrics.ImportMetrics) (*Importer, error) {
	if svc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Importer{svc: svc, logg: logg, metrics: m}, nil
}

// ImportFile parses r according to format and imports its rows.
func (i *Importer) ImportFile(ctx context.Context, format enums.ImportFormat, r io.Reader) (*ImportReport, error) {
	rows, err := ReadRows(format, r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable import file")
	}
	return i.Import(ctx, rows)
}

// Import upserts each row in order. Rows without code or name_ar are counted
// as errors and skipped; an unparsable price is stored as null with a warning.
// The returned error aggregates dependency failures; validation problems are
// reported only through the report.
func (i *Importer) Import(ctx context.Context, rows []Row) (*ImportReport, error) {
	report := &ImportReport{Failures: []RowIssue{}, Warnings: []RowIssue{}}
	var errs error

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		input, warning, issue := rowToInput(row)
		if warning != nil {
			report.Warnings = append(report.Warnings, *warning)
			i.logg.Warn(i.logg.WithField(ctx, "line", row.Line), warning.Message)
		}
		if issue != nil {
			report.Errors++
			report.Failures = append(report.Failures, *issue)
			continue
		}

		_, created, err := i.svc.Upsert(ctx, input)
		if err != nil {
			report.Errors++
			report.Failures = append(report.Failures, RowIssue{Line: row.Line, Code: input.Code, Message: err.Error()})
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				errs = multierr.Append(errs, fmt.Errorf("line %d: %w", row.Line, err))
			}
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	i.metrics.AddRows("created", report.Created)
	i.metrics.AddRows("updated", report.Updated)
	i.metrics.AddRows("error", report.Errors)

	i.logg.Info(i.logg.WithFields(ctx, map[string]any{
		"created": report.Created,
		"updated": report.Updated,
		"errors":  report.Errors,
	}), "medicine import completed")

	return report, errs
}

func rowToInput(row Row) (MedicineInput, *RowIssue, *RowIssue) {
	input := MedicineInput{
		Code:           row.get("code"),
		NameAR:         row.get("name_ar"),
		NameEN:         row.optional("name_en"),
		ScientificName: row.optional("scientific_name"),
		Manufacturer:   row.optional("manufacturer"),
		DescriptionAR:  row.optional("description_ar"),
		DescriptionEN:  row.optional("description_en"),
		Dosage:         row.optional("dosage"),
		SideEffects:    row.optional("side_effects"),
		Warnings:       row.optional("warnings"),
		Category:       row.optional("category"),
	}

	var warning *RowIssue
	if raw := row.get("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || !priceInRange(price) {
			warning = &RowIssue{Line: row.Line, Code: input.Code, Message: fmt.Sprintf("invalid price %q stored as null", raw)}
		} else {
			input.Price = &price
		}
	}

	switch strings.ToLower(row.get("is_active")) {
	case "true", "1", "yes":
		active := true
		input.IsActive = &active
	case "false", "0", "no":
		active := false
		input.IsActive = &active
	}

	if input.Code == "" {
		return input, warning, &RowIssue{Line: row.Line, Message: "missing code"}
	}
	if input.NameAR == "" {
		return input, warning, &RowIssue{Line: row.Line, Code: input.Code, Message: "missing name_ar"}
	}
	return input, warning, nil
}

// ReadRows decodes a CSV or XLSX stream into rows keyed by header name.
func ReadRows(format enums.ImportFormat, r io.Reader) ([]Row, error) {
	switch format {
	case enums.ImportFormatCSV:
		return ReadCSV(r)
	case enums.ImportFormatXLSX:
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

// ReadCSV decodes a UTF-8 CSV stream whose first record is the header.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromRecords(records)
}

// ReadXLSX decodes the first worksheet of a workbook whose first row is the header.
func ReadXLSX(r io.Reader) (rows []Row, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rowsFromRecords(records)
}

func rowsFromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	header := make([]string, len(records[0]))
	seen := map[string]bool{}
	for idx, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[idx] = name
		seen[name] = true
	}
	for _, required := range []string{"code", "name_ar"} {
		if !seen[required] {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for idx, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		values := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" || col >= len(record) {
				continue
			}
			values[name] = record[col]
		}
		rows = append(rows, Row{Line: idx + 2, Values: values})
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

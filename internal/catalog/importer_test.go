package catalog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/angelmondragon/medrec-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestImporter(t *testing.T) (*Importer, *Repository) {
	t.Helper()
	svc, repo, _ := newTestService(t)
	imp, err := NewImporter(svc, newTestLogger(), metrics.NewImportMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return imp, repo
}

func TestImportDuplicateCodesSecondRowWins(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	csvData := "code,name_ar,name_en,price\n" +
		"MED001,بانادول,Panadol,15.50\n" +
		"MED001,بانادول اكسترا,Panadol Extra,17\n"

	report, err := imp.ImportFile(ctx, enums.ImportFormatCSV, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Errors)

	stored, err := repo.FindByCode(ctx, "MED001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "بانادول اكسترا", stored.NameAR)
	require.NotNil(t, stored.NameEN)
	assert.Equal(t, "Panadol Extra", *stored.NameEN)
	assert.Equal(t, "17.00", stored.Price.StringFixed(2))
}

func TestImportSkipsIncompleteRowsAndNullsBadPrices(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	csvData := "Code, Name_AR ,price\n" +
		",بانادول,10\n" +
		"MED002,,10\n" +
		"\n" +
		"MED003,فيفادول,abc\n" +
		"MED004,بروفين,-3\n"

	report, err := imp.ImportFile(ctx, enums.ImportFormatCSV, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Errors)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 2, report.Failures[0].Line)
	assert.Equal(t, "missing code", report.Failures[0].Message)
	assert.Equal(t, "MED002", report.Failures[1].Code)
	assert.Len(t, report.Warnings, 2)

	stored, err := repo.FindByCode(ctx, "MED003")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Price)
}

func TestImportNullsOutOfRangePrices(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	csvData := "code,name_ar,price\n" +
		"MED010,بانادول,123456789012\n" +
		"MED011,فيفادول,99999999.99\n"

	report, err := imp.ImportFile(ctx, enums.ImportFormatCSV, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "MED010", report.Warnings[0].Code)

	stored, err := repo.FindByCode(ctx, "MED010")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Price)

	stored, err = repo.FindByCode(ctx, "MED011")
	require.NoError(t, err)
	require.NotNil(t, stored.Price)
	assert.Equal(t, "99999999.99", stored.Price.StringFixed(2))
}

func TestImportHonorsIsActiveColumn(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	report, err := imp.ImportFile(ctx, enums.ImportFormatCSV, strings.NewReader("code,name_ar,is_active\nMED010,دواء,false\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	stored, err := repo.FindByCode(ctx, "MED010")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestReadRowsRejectsMissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("code,name_en\nMED001,Panadol\n"))
	require.ErrorContains(t, err, "name_ar")

	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadRows(enums.ImportFormat("json"), strings.NewReader("{}"))
	require.Error(t, err)
}

func TestImportXLSX(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	records := [][]any{
		{"code", "name_ar", "category", "price"},
		{"MED005", "فيتامين سي 1000", "فيتامينات", "35"},
		{"MED006", "أنتينال", "", ""},
	}
	for rowIdx, record := range records {
		for colIdx, v := range record {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := imp.ImportFile(ctx, enums.ImportFormatXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)

	stored, err := repo.FindByCode(ctx, "MED005")
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "فيتامينات", *stored.Category)
	assert.Equal(t, "35.00", stored.Price.StringFixed(2))

	bare, err := repo.FindByCode(ctx, "MED006")
	require.NoError(t, err)
	assert.Nil(t, bare.Category)
}

func TestLoadSampleIsIdempotent(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	first, err := imp.LoadSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, first.Created)

	second, err := imp.LoadSample(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 8, second.Updated)

	panadol, err := repo.FindActiveByCode(ctx, "MED001")
	require.NoError(t, err)
	require.NotNil(t, panadol)
	assert.Equal(t, "15.50", panadol.Price.StringFixed(2))
}

func TestExportRoundTrip(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()

	_, err := imp.LoadSample(ctx)
	require.NoError(t, err)
	inactive := false
	_, _, err = imp.svc.Upsert(ctx, MedicineInput{Code: "MED099", NameAR: "قديم", IsActive: &inactive})
	require.NoError(t, err)

	exp, err := NewExporter(repo)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exp.WriteXLSX(ctx, &buf))

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	width, err := book.GetColWidth(exportSheet, "C")
	require.NoError(t, err)
	assert.Equal(t, 28.0, width)
	require.NoError(t, book.Close())

	rows, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, "MED001", rows[0].get("code"))
	assert.Equal(t, "15.50", rows[0].get("price"))
	assert.Equal(t, "false", rows[8].get("is_active"))

	other, otherRepo := newTestImporter(t)
	report, err := other.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 9, report.Created)

	stored, err := otherRepo.FindByCode(ctx, "MED099")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestExportCSVReimports(t *testing.T) {
	imp, repo := newTestImporter(t)
	ctx := context.Background()
	_, err := imp.LoadSample(ctx)
	require.NoError(t, err)

	exp, err := NewExporter(repo)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, exp.Write(ctx, enums.ImportFormatCSV, &buf))

	rows, err := ReadCSV(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, "MED001", rows[0].get("code"))
	assert.Equal(t, "true", rows[0].get("is_active"))

	assert.Error(t, exp.Write(ctx, enums.ImportFormat("json"), &buf))
}

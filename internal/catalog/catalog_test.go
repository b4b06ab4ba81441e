package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
}

func newTestService(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, config.CatalogConfig{SearchDefaultLimit: 2, SearchMaxLimit: 3}, newTestLogger())
	require.NoError(t, err)
	return svc, repo, conn
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, config.CatalogConfig{}, newTestLogger())
	require.Error(t, err)

	_, err = NewService(NewRepository(dbtest.Open(t)), config.CatalogConfig{}, nil)
	require.Error(t, err)
}

func TestRepositoryFindActiveByCode(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	active := dbtest.CreateMedicine(t, conn, "MED001", "بانادول", true)
	dbtest.CreateMedicine(t, conn, "MED002", "كونجستال", false)

	found, err := repo.FindActiveByCode(ctx, "MED001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)

	missing, err := repo.FindActiveByCode(ctx, "MED999")
	require.NoError(t, err)
	assert.Nil(t, missing)

	inactive, err := repo.FindActiveByCode(ctx, "MED002")
	require.NoError(t, err)
	assert.Nil(t, inactive)

	lower, err := repo.FindActiveByCode(ctx, "med001")
	require.NoError(t, err)
	assert.Nil(t, lower, "lookup must be case-sensitive")

	regardless, err := repo.FindByCode(ctx, "MED002")
	require.NoError(t, err)
	require.NotNil(t, regardless)
	assert.False(t, regardless.IsActive)
}

func TestServiceListExcludesInactiveAndPaginates(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	dbtest.CreateMedicine(t, conn, "MED003", "ج", true)
	dbtest.CreateMedicine(t, conn, "MED001", "أ", true)
	dbtest.CreateMedicine(t, conn, "MED002", "ب", false)
	dbtest.CreateMedicine(t, conn, "MED004", "د", true)

	first, err := svc.List(ctx, ListParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Total)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "MED001", first.Items[0].Code)
	assert.Equal(t, "MED003", first.Items[1].Code)

	second, err := svc.List(ctx, ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "MED004", second.Items[0].Code)

	defaults, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 25, defaults.Limit)
}

func TestServiceSearch(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	name := "Panadol Extra"
	category := "Analgesics"
	med := dbtest.CreateMedicine(t, conn, "MED001", "بانادول", true)
	require.NoError(t, conn.Model(med).Updates(map[string]any{"name_en": name, "category": category}).Error)
	dbtest.CreateMedicine(t, conn, "PAN100", "بانادول نايت", false)
	dbtest.CreateMedicine(t, conn, "MED002", "بانادول أدفانس", true)
	dbtest.CreateMedicine(t, conn, "MED003", "بانادول كولد", true)
	dbtest.CreateMedicine(t, conn, "MED004", "بانادول جوينت", true)

	byEnglish, err := svc.Search(ctx, "panadol", 0)
	require.NoError(t, err)
	require.Len(t, byEnglish, 1)
	assert.Equal(t, "MED001", byEnglish[0].Code)

	byCategory, err := svc.Search(ctx, "ANALGESIC", 0)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	byArabic, err := svc.Search(ctx, "بانادول", 0)
	require.NoError(t, err)
	assert.Len(t, byArabic, 2, "default limit applies")

	capped, err := svc.Search(ctx, "بانادول", 100)
	require.NoError(t, err)
	assert.Len(t, capped, 3, "max limit caps the request")
	for _, item := range capped {
		assert.NotEqual(t, "PAN100", item.Code)
	}

	wildcard, err := svc.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, wildcard, "like wildcards are escaped")

	_, err = svc.Search(ctx, "   ", 10)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceDetail(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	dbtest.CreateMedicine(t, conn, "MED001", "بانادول", true)
	dbtest.CreateMedicine(t, conn, "MED002", "كونجستال", false)

	dto, err := svc.Detail(ctx, "MED001")
	require.NoError(t, err)
	assert.Equal(t, "بانادول", dto.NameAR)

	_, err = svc.Detail(ctx, "MED002")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Detail(ctx, "MED999")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceUpsertCreatesThenReplaces(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	price := decimal.RequireFromString("15.5")
	created, isNew, err := svc.Upsert(ctx, MedicineInput{
		Code:     " MED001 ",
		NameAR:   "بانادول",
		NameEN:   strPtr("Panadol"),
		Category: strPtr("  "),
		Price:    &price,
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "MED001", created.Code)
	require.NotNil(t, created.Price)
	assert.Equal(t, "15.50", *created.Price)
	assert.Nil(t, created.Category)
	assert.True(t, created.IsActive)

	updated, isNew, err := svc.Upsert(ctx, MedicineInput{Code: "MED001", NameAR: "بانادول اكسترا"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "بانادول اكسترا", updated.NameAR)
	assert.Nil(t, updated.NameEN)
	assert.Nil(t, updated.Price)

	stored, err := repo.FindByCode(ctx, "MED001")
	require.NoError(t, err)
	assert.Equal(t, "بانادول اكسترا", stored.NameAR)
}

func TestServiceUpsertInactive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	inactive := false
	_, _, err := svc.Upsert(ctx, MedicineInput{Code: "MED009", NameAR: "دواء", IsActive: &inactive})
	require.NoError(t, err)

	stored, err := repo.FindByCode(ctx, "MED009")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)

	_, err = svc.Detail(ctx, "MED009")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestServiceUpsertValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	negative := decimal.RequireFromString("-1")

	_, _, err := svc.Upsert(context.Background(), MedicineInput{Price: &negative})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "required", details["code"])
	assert.Equal(t, "required", details["name_ar"])
	assert.Equal(t, priceMessage, details["price"])
}

func TestServiceUpdateSetActiveAndDelete(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()
	dbtest.CreateMedicine(t, conn, "MED001", "بانادول", true)

	price := decimal.RequireFromString("9.999")
	dto, err := svc.Update(ctx, "MED001", UpdateInput{Dosage: strPtr("مرتين يومياً"), Price: &price})
	require.NoError(t, err)
	require.NotNil(t, dto.Dosage)
	assert.Equal(t, "10.00", *dto.Price)

	dto, err = svc.Update(ctx, "MED001", UpdateInput{ClearPrice: true})
	require.NoError(t, err)
	assert.Nil(t, dto.Price)
	assert.NotNil(t, dto.Dosage, "untouched fields survive")

	_, err = svc.Update(ctx, "MED001", UpdateInput{NameAR: strPtr(" ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	dto, err = svc.SetActive(ctx, "MED001", false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
	_, err = svc.Detail(ctx, "MED001")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	dto, err = svc.SetActive(ctx, "MED001", true)
	require.NoError(t, err)
	assert.True(t, dto.IsActive)

	_, err = svc.Update(ctx, "MED404", UpdateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, "MED001"))
	err = svc.Delete(ctx, "MED001")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

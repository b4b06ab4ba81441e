package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string
	Label     *string
	IsActive  bool
	CreatedAt time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&row{}))
	return conn
}

func seed(t *testing.T, conn *gorm.DB, code string, label *string, active bool, created time.Time) {
	t.Helper()
	r := &row{ID: uuid.New(), Code: code, Label: label, CreatedAt: created.UTC()}
	require.NoError(t, conn.Create(r).Error)
	require.NoError(t, conn.Model(r).UpdateColumn("is_active", active).Error)
}

func strPtr(v string) *string { return &v }

func TestBaseDBBindsContext(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, conn, base.DB(nil))
}

func TestFindOneTreatsMissAsNil(t *testing.T) {
	conn := newTestDB(t)
	seed(t, conn, "MED001", nil, true, time.Now())

	found, err := FindOne[row](conn.Where("code = ?", "MED001"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "MED001", found.Code)

	missing, err := FindOne[row](conn.Where("code = ?", "MED999"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActiveAndPageScopes(t *testing.T) {
	conn := newTestDB(t)
	now := time.Now()
	seed(t, conn, "A", nil, true, now)
	seed(t, conn, "B", nil, false, now)
	seed(t, conn, "C", nil, true, now)
	seed(t, conn, "D", nil, true, now)

	var rows []row
	require.NoError(t, conn.Scopes(Active, Page(1, 2)).Order("code ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].Code)
	assert.Equal(t, "D", rows[1].Code)
}

func TestCreatedBefore(t *testing.T) {
	conn := newTestDB(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, conn, "OLD", nil, true, cutoff.Add(-time.Hour))
	seed(t, conn, "NEW", nil, true, cutoff.Add(time.Hour))

	var rows []row
	require.NoError(t, conn.Scopes(CreatedBefore(cutoff)).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "OLD", rows[0].Code)
}

func TestContainsAnyMatchesLiterally(t *testing.T) {
	conn := newTestDB(t)
	now := time.Now()
	seed(t, conn, "MED001", strPtr("Pain Relief"), true, now)
	seed(t, conn, "MED002", strPtr("100% pure"), true, now)
	seed(t, conn, "MED003", nil, true, now)

	var rows []row
	require.NoError(t, conn.Scopes(ContainsAny("relief", "code", "label")).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "MED001", rows[0].Code)

	rows = nil
	require.NoError(t, conn.Scopes(ContainsAny("%", "label")).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "MED002", rows[0].Code)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, EscapeLike(`50% off_now\`))
}

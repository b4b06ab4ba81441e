package migrate_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMedicinesMigrationContainsSchema(t *testing.T) {
	assertContains(t, readMigration(t, "create_medicines_table"), []string{
		"CREATE TABLE IF NOT EXISTS medicines",
		"CONSTRAINT medicines_code_key UNIQUE (code)",
		"is_active boolean NOT NULL DEFAULT true",
		"price numeric(10,2)",
		"CREATE INDEX IF NOT EXISTS idx_medicines_active_code",
	})
}

func TestImageUploadsMigrationContainsSchema(t *testing.T) {
	assertContains(t, readMigration(t, "create_image_uploads_table"), []string{
		"CREATE TABLE IF NOT EXISTS image_uploads",
		"REFERENCES users(id) ON DELETE CASCADE",
		"REFERENCES medicines(id) ON DELETE SET NULL",
		"result_payload jsonb",
		"CREATE INDEX IF NOT EXISTS idx_image_uploads_owner_created",
	})
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("expected embedded migrations to validate: %v", err)
	}
	entries, err := fs.ReadDir(migrate.Embedded(), ".")
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 embedded migrations, got %d", len(entries))
	}
}

func TestValidateFSRejectsDownBeforeUp(t *testing.T) {
	fsys := fstest.MapFS{
		"20260101000000_swap.sql": {Data: []byte("-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n")},
	}
	if err := migrate.ValidateFS(fsys); err == nil {
		t.Fatal("expected out-of-order sections to fail validation")
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20260101000000_a.sql": {Data: body},
		"20260101000000_b.sql": {Data: body},
	}
	if err := migrate.ValidateFS(fsys); err == nil {
		t.Fatal("expected duplicate versions to fail validation")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Medicine Barcode")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_medicine_barcode.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if _, err := migrate.CreateSQLMigration(dir, "--- !!"); err == nil {
		t.Fatal("expected a name without usable characters to fail")
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	client := db.FromGorm(conn)
	if err := migrate.AutoMigrate(context.Background(), client); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	for _, table := range []string{"users", "medicines", "image_uploads"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
}

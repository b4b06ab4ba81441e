package dbtest

import (
	"testing"

	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns an isolated in-memory SQLite database with the application
// schema migrated. Each call gets its own database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}

// CreateUser inserts an active user with a unique username and email.
func CreateUser(t testing.TB, conn *gorm.DB) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username:     "user_" + suffix,
		Email:        "user_" + suffix + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateMedicine inserts a medicine with the given code and activity flag.
func CreateMedicine(t testing.TB, conn *gorm.DB, code, nameAR string, active bool) *models.Medicine {
	t.Helper()
	med := &models.Medicine{
		Code:     code,
		NameAR:   nameAR,
		IsActive: true,
	}
	if err := conn.Create(med).Error; err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	if !active {
		// is_active carries a column default, so false must be written explicitly.
		if err := conn.Model(med).UpdateColumn("is_active", false).Error; err != nil {
			t.Fatalf("deactivate medicine: %v", err)
		}
		med.IsActive = false
	}
	return med
}

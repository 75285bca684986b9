package testfixtures

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"prodstudio/internal/database"
	"prodstudio/internal/repository"
)

// SQLiteHarness provides stores backed by a temporary, migrated SQLite file.
type SQLiteHarness struct {
	DB       *gorm.DB
	Users    *repository.UserRepository
	Bookings *repository.BookingRepository
}

// NewSQLiteHarness opens a fresh database under tb.TempDir and closes it on cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "studio.db")
	db, err := database.Connect(path)
	if err != nil {
		tb.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &SQLiteHarness{
		DB:       db,
		Users:    repository.NewUserRepository(db),
		Bookings: repository.NewBookingRepository(db),
	}
}

package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

// OpenTest returns a migrated, private in-memory sqlite database that is
// closed when the test ends.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

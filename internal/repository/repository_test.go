package repository

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tleenotes/internal/db"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
// A single pooled connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gormDB, err := db.Open(db.Options{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), gormDB))

	t.Cleanup(func() { _ = db.Close(gormDB) })
	return gormDB
}

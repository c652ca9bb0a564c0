// Package testutil holds the shared SQLite fixture and assertions used by
// the service and app tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"famledger/internal/database"
	"famledger/internal/logger"
)

var dbSeq atomic.Int64

func init() {
	logger.Init("test")
}

// SetupTestDB opens a fresh in-memory SQLite database with the full schema.
// Each call gets its own named database, and the pool is held to one
// connection so the shared cache never locks against itself.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:famledger_test_%d?mode=memory&cache=shared&_foreign_keys=0", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.Models...), "migrate test database")
	return db
}

// TeardownTestDB closes the connection opened by SetupTestDB.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("teardown: %v", err)
	}
}

package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/techstore-checkout/pkg/db"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestRunUpCreatesCheckoutAttempts(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_up?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, db.DriverSQLite, "up"))
	require.True(t, conn.Migrator().HasTable("checkout_attempts"))
	require.True(t, conn.Migrator().HasColumn("checkout_attempts", "orphaned_unpaid_order"))

	require.NoError(t, Run(ctx, sqlDB, db.DriverSQLite, "down"))
	require.False(t, conn.Migrator().HasTable("checkout_attempts"))
}

func TestDialect(t *testing.T) {
	require.Equal(t, "sqlite3", Dialect(db.DriverSQLite))
	require.Equal(t, "postgres", Dialect(db.DriverPostgres))
	require.Equal(t, "postgres", Dialect(""))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Attempt Notes!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_attempt_notes.sql"))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Up")
	require.NoError(t, ValidateDir(filepath.Dir(path)))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestAutoMigrateModelsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_auto?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	client := db.NewFromConn(conn, db.DriverSQLite)

	require.NoError(t, AutoMigrateModels(context.Background(), client))
	require.True(t, conn.Migrator().HasTable("checkout_attempts"))
}

package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedSQLiteMigrationsApply(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, RunEmbedded(ctx, sqlDB, config.DriverSQLite, "up"))

	for _, table := range []string{"users", "reports", "entries"} {
		assert.True(t, conn.Migrator().HasTable(table), "expected table %s", table)
	}

	_, err = sqlDB.Exec(`INSERT INTO reports (id, uploaded_by) VALUES ('r1', 'admin')`)
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO entries (id, report_id, upload_index, sku, assigned_to) VALUES ('e1', 'r1', 0, 'A-1', 'ana')`)
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO entries (id, report_id, upload_index, sku, assigned_to) VALUES ('e2', 'r1', 0, 'A-2', 'ana')`)
	require.Error(t, err, "upload_index must be unique per report")
	_, err = sqlDB.Exec(`INSERT INTO entries (id, report_id, upload_index, sku, assigned_to) VALUES ('e3', 'r1', 1, '  ', 'ana')`)
	require.Error(t, err, "blank sku must be rejected")

	require.NoError(t, RunEmbedded(ctx, sqlDB, config.DriverSQLite, "down-to", "0"))
	assert.False(t, conn.Migrator().HasTable("entries"))
}

func TestMigrationTreeIsConsistent(t *testing.T) {
	require.NoError(t, ValidateTree("migrations"))
}

func TestPostgresEntriesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "postgres", "*_create_entries.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS entries",
		"FOREIGN KEY (report_id) REFERENCES reports(id)",
		"UNIQUE (report_id, upload_index)",
		"CHECK (upload_index >= 0)",
		"DROP TABLE IF EXISTS entries",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestCreateSQLMigrationWritesBothDialects(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	paths, err := CreateSQLMigration(root, "Add Entry Notes!", now)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, "20260304050607_add_entry_notes.sql"), p)
	}
	require.NoError(t, ValidateTree(root))

	_, err = CreateSQLMigration(root, "Add Entry Notes!", now)
	require.Error(t, err)
	_, err = CreateSQLMigration(root, "!!!", now)
	require.Error(t, err)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect(config.DriverSQLite))
	assert.Equal(t, "postgres", Dialect(config.DriverPostgres))
	assert.Equal(t, "postgres", Dialect(""))
}

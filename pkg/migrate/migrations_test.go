package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/db"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one migration matching %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestTicketsMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_tickets.sql")

	checks := []string{
		"CREATE TYPE ticket_type AS ENUM ('general', 'vip', 'ringside')",
		"CREATE TYPE ticket_status AS ENUM ('valid', 'used', 'expired', 'cancelled')",
		"CREATE TABLE IF NOT EXISTS tickets",
		"CONSTRAINT tickets_id_key UNIQUE (id)",
		"tickets_used_consistency_check",
		"CREATE TABLE IF NOT EXISTS ticket_issuances",
		"idx_tickets_expiry_candidates",
		"DROP TABLE IF EXISTS tickets",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationMatchesEnums(t *testing.T) {
	content := readMigration(t, "*_create_outbox_events.sql")
	for _, sub := range []string{
		"'tickets_issued', 'ticket_admitted', 'ticket_expired'",
		"CREATE TYPE aggregate_type_enum AS ENUM ('order', 'ticket')",
		"aggregate_id TEXT NOT NULL",
		"DROP TABLE IF EXISTS outbox_events",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDir(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))

	dir := t.TempDir()
	require.Error(t, ValidateDir(dir), "empty dir should fail")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_flipped.sql"), []byte("-- +goose Down\n-- +goose Up\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2, "every problem should be reported")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Ticket Notes!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_ticket_notes.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestCreateSQLMigrationVersionsStayIncreasing(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := createSQLMigrationAt(dir, "add_used_by", now)
	require.NoError(t, err)
	second, err := createSQLMigrationAt(dir, "add_used_by_index", now)
	require.NoError(t, err)

	require.Equal(t, "20260301120000_add_used_by.sql", filepath.Base(first))
	require.Equal(t, "20260301120001_add_used_by_index.sql", filepath.Base(second))
	require.NoError(t, ValidateDir(dir))
}

func TestAutoMigrateModelsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:automigrate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	client := db.Wrap(conn)

	require.NoError(t, AutoMigrateModels(client))
	for _, table := range []string{"tickets", "ticket_issuances", "outbox_events"} {
		require.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
}

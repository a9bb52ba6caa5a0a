package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig writes a config pointing at a SQLite file in a temp dir and returns
// the config path and the database path.
func testConfig(t *testing.T) (string, string) {
	t.Helper()
	for _, k := range []string{"FRED_API_KEY", "FMP_API_KEY", "DATABASE_URL", "REDIS_ADDR", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	db := filepath.Join(dir, "curves.db")
	body := fmt.Sprintf("storage:\n  dsn: %s\nlog:\n  level: error\n", db)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, db
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestBackfill_DryRun(t *testing.T) {
	cfg, db := testConfig(t)
	assert.NoError(t, run(t, "--config", cfg, "backfill", "--dry-run", "--months", "3"))

	_, err := os.Stat(db)
	assert.ErrorIs(t, err, os.ErrNotExist, "dry run must not create the database")
}

func TestFillGaps_DryRun(t *testing.T) {
	cfg, db := testConfig(t)
	assert.NoError(t, run(t, "--config", cfg, "fill-gaps", "--dry-run", "--days", "10", "--country", "us"))

	_, err := os.Stat(db)
	assert.ErrorIs(t, err, os.ErrNotExist, "dry run must not create the database")
}

func TestCommands_RejectBadInput(t *testing.T) {
	cfg, _ := testConfig(t)

	assert.Error(t, run(t, "--config", cfg, "backfill", "--country", "mx", "--dry-run"))
	assert.Error(t, run(t, "--config", cfg, "fill-gaps", "--dry-run", "--days", "0"))
	assert.Error(t, run(t, "--config", cfg, "analytics", "--window", "0"))
	assert.Error(t, run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "backfill", "--dry-run"))
}

package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDB_MigratesToLatest(t *testing.T) {
	db := setupTestDB(t)

	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest = %d, want 2", latest)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d false", version, dirty, latest)
	}

	st, err := db.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(st.Pending) != 0 {
		t.Errorf("expected no pending migrations, got %v", st.Pending)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, _ := db.MigrateVersion()
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'signal_plans'`).Scan(&n); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if n != 0 {
		t.Error("signal_plans should be dropped after rolling back")
	}

	st, err := db.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(st.Pending) != 1 || st.Pending[0] != "000002_signal_plans.up.sql" {
		t.Errorf("Pending = %v", st.Pending)
	}

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	// a second up is a no-op
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	version, _, _ = db.MigrateVersion()
	if version != 2 {
		t.Errorf("version after up = %d, want 2", version)
	}
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	var out bytes.Buffer
	if err := RunMigrateCommand([]string{"status"}, path, &out); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 0") || !strings.Contains(out.String(), "Pending: 000001_counts.up.sql") {
		t.Errorf("unexpected status output:\n%s", out.String())
	}

	out.Reset()
	if err := RunMigrateCommand([]string{"up"}, path, &out); err != nil {
		t.Fatalf("up failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 2") {
		t.Errorf("unexpected up output:\n%s", out.String())
	}

	out.Reset()
	if err := RunMigrateCommand([]string{"down"}, path, &out); err != nil {
		t.Fatalf("down failed: %v", err)
	}
	if !strings.Contains(out.String(), "Current version: 1") {
		t.Errorf("unexpected down output:\n%s", out.String())
	}

	if err := RunMigrateCommand(nil, path, &out); err == nil {
		t.Error("expected error for missing action")
	}
	if err := RunMigrateCommand([]string{"sideways"}, path, &out); err == nil {
		t.Error("expected error for unknown action")
	}
	if err := RunMigrateCommand([]string{"force"}, path, &out); err == nil {
		t.Error("expected error for force without version")
	}
	if err := RunMigrateCommand([]string{"force", "two"}, path, &out); err == nil {
		t.Error("expected error for non-numeric version")
	}
}

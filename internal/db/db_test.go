package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	database, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return database
}

func TestNew_CreatesDatabase(t *testing.T) {
	database := openTestDB(t, filepath.Join(t.TempDir(), "nested", "agent.db"))
	defer database.Close()

	tables := []string{"projects", "snapshots", "jobs", "config", "_migrations"}
	for _, table := range tables {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_Pragmas(t *testing.T) {
	database := openTestDB(t, filepath.Join(t.TempDir(), "agent.db"))
	defer database.Close()

	var journalMode string
	if err := database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	var foreignKeys int
	if err := database.Conn().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("PRAGMA foreign_keys error = %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")

	db1 := openTestDB(t, dbPath)
	db1.Close()

	db2 := openTestDB(t, dbPath)
	defer db2.Close()

	var count int
	if err := db2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations error = %v", err)
	}
	if count != 3 {
		t.Errorf("migration count = %d, want 3", count)
	}
}

func TestMarkInterruptedJobs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")

	db1 := openTestDB(t, dbPath)
	_, err := db1.Conn().Exec(`
		INSERT INTO jobs (id, type, status, progress, created_at, updated_at)
		VALUES ('running-job', 'metrics', 'running', 50, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z'),
		       ('pending-job', 'guess', 'pending', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("insert job error = %v", err)
	}
	db1.Close()

	db2 := openTestDB(t, dbPath)
	defer db2.Close()

	tests := []struct {
		id         string
		wantStatus string
		wantError  string
	}{
		{"running-job", "failed", InterruptedJobError},
		{"pending-job", "pending", ""},
	}
	for _, tt := range tests {
		var status string
		var errMsg sql.NullString
		err := db2.Conn().QueryRow("SELECT status, error FROM jobs WHERE id = ?", tt.id).Scan(&status, &errMsg)
		if err != nil {
			t.Fatalf("query job error = %v", err)
		}
		if status != tt.wantStatus || errMsg.String != tt.wantError {
			t.Errorf("job %s = (%s, %q), want (%s, %q)", tt.id, status, errMsg.String, tt.wantStatus, tt.wantError)
		}
	}
}

func TestSnapshotsCascade(t *testing.T) {
	database := openTestDB(t, filepath.Join(t.TempDir(), "agent.db"))
	defer database.Close()

	conn := database.Conn()
	if _, err := conn.Exec(`INSERT INTO projects (id, name, path, input_file, created_at, updated_at)
		VALUES ('p1', 'ep01', '/videos/ep01.json', '/videos/ep01.m2ts', 'x', 'x')`); err != nil {
		t.Fatalf("insert project error = %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO snapshots (id, project_id, description, document, created_at)
		VALUES ('s1', 'p1', 'before guess', '{}', 'x')`); err != nil {
		t.Fatalf("insert snapshot error = %v", err)
	}
	if _, err := conn.Exec(`DELETE FROM projects WHERE id = 'p1'`); err != nil {
		t.Fatalf("delete project error = %v", err)
	}

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		t.Fatalf("count snapshots error = %v", err)
	}
	if count != 0 {
		t.Errorf("snapshots after project delete = %d, want 0", count)
	}
}

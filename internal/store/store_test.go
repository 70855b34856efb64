package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sieve.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d failed: %v", i, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("database file missing after Open() #%d: %v", i, err)
		}
		for _, table := range []string{"results", "runs"} {
			var count int
			if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
				t.Errorf("Open() #%d: table %s not queryable: %v", i, table, err)
			}
		}
		s.Close()
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/sieve.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	mode, err := s.pragmaValue("journal_mode")
	if err != nil {
		t.Fatal(err)
	}
	if mode != "memory" {
		t.Errorf("journal_mode = %q, want memory", mode)
	}
}

func TestOpen_InMemoryIsPrivate(t *testing.T) {
	a, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer a.Close()
	b, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer b.Close()

	if _, err := a.db.Exec(`INSERT INTO results (key, dtype, rows, cols, payload) VALUES ('k', 'bool', 1, 1, x'00')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	var count int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("second in-memory store sees %d results, want 0", count)
	}
}

func TestClose(t *testing.T) {
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}

	s := createTestStore(t)
	if err := s.DB().Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	_ = s.Close()
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	for _, p := range pragmas {
		t.Run(p.name, func(t *testing.T) {
			got, err := s.pragmaValue(p.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != p.want {
				t.Errorf("%s = %q, want %q", p.name, got, p.want)
			}
		})
	}
}

func TestMigration_CurrentVersion(t *testing.T) {
	s := createTestStore(t)

	version, err := userVersion(s.db)
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
	if indexes := getTableIndexes(t, s.db, "runs"); !slices.Contains(indexes, "idx_runs_fingerprint") {
		t.Errorf("runs table missing fingerprint index, indexes: %v", indexes)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sieve.db")

	// A database with the base schema and no migrations applied.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	version, err := userVersion(s.db)
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}
	if indexes := getTableIndexes(t, s.db, "runs"); !slices.Contains(indexes, "idx_runs_fingerprint") {
		t.Errorf("expected fingerprint index after migration, got indexes: %v", indexes)
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tables := map[string][]string{
		"results": {"key", "dtype", "rows", "cols", "payload"},
		"runs":    {"id", "seq", "pipeline", "fingerprint", "outputs", "terms", "computed", "cache_hits"},
	}
	for table, want := range tables {
		got := getTableColumns(t, s.db, table)
		if !slices.Equal(got, want) {
			t.Errorf("%s columns = %v, want %v", table, got, want)
		}
	}
}

func TestConstraint_ResultsDTypeChecked(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO results (key, dtype, rows, cols, payload) VALUES ('k', 'string', 1, 1, x'00')`)
	if err == nil {
		t.Error("expected CHECK constraint to reject unknown dtype")
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	if err != nil {
		t.Fatalf("index query failed: %v", err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

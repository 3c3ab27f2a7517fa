package database

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
)

func TestMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %q in migrations", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
}

// testURL returns DATABASE_URL or skips the test.
func testURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	return url
}

func TestMigrate_Idempotent(t *testing.T) {
	url := testURL(t)

	if err := Migrate(url); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := Migrate(url); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	db, err := Open(context.Background(), url)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer db.Close()

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('projects', 'testimonials')`).Scan(&n)
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	if n != 2 {
		t.Errorf("found %d tables, want 2", n)
	}
}

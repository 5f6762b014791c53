package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestVersionFromFile(t *testing.T) {
	tests := []struct {
		name    string
		want    int64
		wantErr bool
	}{
		{"001_ledger_store.up.sql", 1, false},
		{"012_add_index.up.sql", 12, false},
		{"ledger.sql", 0, true},
		{"abc_x.up.sql", 0, true},
	}
	for _, tc := range tests {
		got, err := versionFromFile(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("versionFromFile(%q) err = %v, wantErr %v", tc.name, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("versionFromFile(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestUpMigrations_sortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"002_b.up.sql", "001_a.up.sql", "001_a.down.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.up.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := upMigrations(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_a.up.sql", "002_b.up.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("upMigrations() = %v, want %v", got, want)
	}
}

func TestMigrationsDirShipsLedgerStore(t *testing.T) {
	files, err := upMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 || files[0] != "001_ledger_store.up.sql" {
		t.Errorf("migrations: %v", files)
	}
}

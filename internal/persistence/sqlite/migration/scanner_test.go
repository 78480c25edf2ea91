package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{name: "valid", file: "001_schedule_entries.sql"},
		{name: "dashes allowed", file: "010_add-index.sql"},
		{name: "missing version", file: "schedule_entries.sql", wantErr: true},
		{name: "missing description", file: "001.sql", wantErr: true},
		{name: "spaces", file: "001_bad name.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.file)
			if tt.wantErr && !errors.Is(err, ErrInvalidMigrationFile) {
				t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestScanMigrationsOrdersByVersion(t *testing.T) {
	files := fstest.MapFS{
		"migrations/010_third.sql":  {Data: []byte("CREATE TABLE c (id TEXT);")},
		"migrations/002_second.sql": {Data: []byte("-- Description: second table\nCREATE TABLE b (id TEXT);")},
		"migrations/001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
		"migrations/README.md":      {Data: []byte("ignored")},
	}

	migrations, err := NewFileScanner(files, "migrations").ScanMigrations()
	if err != nil {
		t.Fatalf("ScanMigrations failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []string{"001", "002", "010"} {
		if migrations[i].Version != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, migrations[i].Version)
		}
	}
	if migrations[0].Description != "first" {
		t.Fatalf("expected description from file name, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "second table" {
		t.Fatalf("expected description from header, got %q", migrations[1].Description)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[2].Checksum {
		t.Fatalf("expected distinct checksums, got %q and %q", migrations[0].Checksum, migrations[2].Checksum)
	}
}

func TestScanMigrationsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr error
	}{
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
				"m/001_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
			},
			wantErr: ErrDuplicateVersion,
		},
		{
			name: "comment only",
			files: fstest.MapFS{
				"m/001_empty.sql": {Data: []byte("-- nothing here\n")},
			},
			wantErr: ErrInvalidMigrationFile,
		},
		{
			name: "bad file name",
			files: fstest.MapFS{
				"m/first.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			},
			wantErr: ErrInvalidMigrationFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileScanner(tt.files, "m").ScanMigrations()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- Description: two statements
CREATE TABLE a (id TEXT);

-- trailing comment
CREATE INDEX idx_a ON a (id);
-- end
`
	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a (id)" {
		t.Fatalf("unexpected second statement: %q", statements[1])
	}
}

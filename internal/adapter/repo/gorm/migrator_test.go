package gormrepo

import (
	"io/fs"
	"testing"
)

func TestEmbeddedMigrationsAreShipped(t *testing.T) {
	fsys, err := Migrations("")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 || names[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %v", names)
	}
}

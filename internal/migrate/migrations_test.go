package migrate_test

import (
	"context"
	"testing"

	"okrhub/internal/db"
	"okrhub/internal/migrate"
)

func TestMigrateIsRepeatable(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()

	if v, err := migrate.Version(ctx, conn); err != nil || v != 0 {
		t.Fatalf("expected unmigrated db, got %d %v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := migrate.Migrate(ctx, conn); err != nil {
			t.Fatalf("migrate pass %d: %v", i, err)
		}
	}
	v, err := migrate.Version(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected schema version 2, got %d", v)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO collections(name,created_at) VALUES ('areas','2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("collections table missing: %v", err)
	}
}

package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir(EmbeddedDir); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	embedded, err := fs.Glob(Embedded, EmbeddedDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join(EmbeddedDir, "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) == 0 || len(embedded) != len(onDisk) {
		t.Fatalf("expected embedded (%d) and disk (%d) migrations to match", len(embedded), len(onDisk))
	}
}

func TestCommissionsMigrationGuardsIntegrity(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(EmbeddedDir, "*_create_commissions.sql"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("commissions migration not found: %v", err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS commissions",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_commissions_order_id",
		"CHECK (fee_cents <= total_cents)",
		"DROP TABLE IF EXISTS commissions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if strings.Contains(content, "ON DELETE CASCADE") {
		t.Error("commissions must be removed by the connect delete transaction, not a cascade")
	}
}

func TestOrdersMigrationKeepsExternalIDUnique(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(EmbeddedDir, "*_create_orders.sql"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("orders migration not found: %v", err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_stripe_id") {
		t.Fatal("orders.stripe_id must be uniquely indexed")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Refunds Table!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refunds_table.sql") {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestRunRequiresDB(t *testing.T) {
	if err := Run(context.Background(), nil, DefaultDir, "up"); err == nil {
		t.Fatal("expected nil db to fail")
	}
}

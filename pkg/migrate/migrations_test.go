package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shoplink/bva-backend/pkg/migrate"
)

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestIntegrationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_integrations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS integrations",
		"settings JSONB NOT NULL DEFAULT '{}'::jsonb",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_integrations_shop_platform ON integrations (shop_id, platform)",
		"FOREIGN KEY (shop_id) REFERENCES shops(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS integrations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_products_and_inventory.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_product_id",
		"DROP TABLE IF EXISTS inventory_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_users_and_shops.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)",
		"CREATE TABLE IF NOT EXISTS shops",
		"CREATE TABLE IF NOT EXISTS shop_accesses",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_shop_access_pair ON shop_accesses (shop_id, user_id)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSchemaHasNoSoftDeleteColumns(t *testing.T) {
	// Revocation and integration removal delete rows outright, so no table
	// should carry a deleted_at column the models never populate.
	matches, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		if strings.Contains(string(data), "deleted_at") {
			t.Errorf("%s declares a deleted_at column", filepath.Base(path))
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

package testutil

import (
	"database/sql"
	_ "embed"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaDDL string

// SetupTestDB creates a connection to the test database and applies the
// schema, so the integration suite runs against an empty database. Override
// the connection string with TEST_DATABASE_URL.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = "host=localhost port=5432 user=comply password=comply dbname=comply_test sslmode=disable"
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// The DDL is idempotent; concurrent packages may apply it in any order.
	if _, err := db.Exec(schemaDDL); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CleanupTestDB removes all test data. Use this if you're not running inside
// a transaction.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	tables := []string{
		"comply.transaction_documents",
		"comply.rules",
		"comply.memberships",
		"comply.organizations",
	}
	for _, table := range tables {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Logf("Warning: Failed to clean up %s: %v", table, err)
		}
	}
}

// CreateTestOrg inserts an organization with one broker_admin membership and
// returns the organization id.
func CreateTestOrg(t *testing.T, db *sql.DB, name, ownerID string) string {
	t.Helper()

	var orgID string
	err := db.QueryRow(`
		INSERT INTO comply.organizations (id, name, status, created_at)
		VALUES (gen_random_uuid(), $1, 'active', NOW())
		RETURNING id
	`, name).Scan(&orgID)
	if err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO comply.memberships (organization_id, user_id, role, created_at)
		VALUES ($1, $2, 'broker_admin', NOW())
	`, orgID, ownerID)
	if err != nil {
		t.Fatalf("Failed to create test membership: %v", err)
	}

	return orgID
}

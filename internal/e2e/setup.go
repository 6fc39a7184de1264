//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearcomply/compliance-service/internal/auth"
	httpserver "github.com/clearcomply/compliance-service/internal/http"
	"github.com/clearcomply/compliance-service/internal/session"
	"github.com/clearcomply/compliance-service/internal/testutil"
)

// WebhookSecret authenticates signup hook calls against the test server.
const WebhookSecret = "e2e-webhook-secret"

// TestServer represents a complete end-to-end test environment:
// a real PostgreSQL database, the full router, a signed-cookie session
// store, and an in-memory event publisher.
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	// httptest serves plain HTTP; a Secure cookie would never be replayed
	t.Setenv("SESSION_COOKIE_INSECURE", "1")
	store, err := session.NewStore([]byte("e2e-signing-key"), time.Hour)
	if err != nil {
		t.Fatalf("Failed to create session store: %v", err)
	}

	router, _ := httpserver.SetupRouter(httpserver.Dependencies{
		DB:            db,
		Verifier:      verifier,
		Perms:         perms,
		Publisher:     mockPublisher,
		Store:         store,
		WebhookSecret: WebhookSecret,
	})

	server := httptest.NewServer(router)

	return &TestServer{
		Server:        server,
		DB:            db,
		MockPublisher: mockPublisher,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
}

// BrokerAdminToken generates a broker_admin token for this test server
func (ts *TestServer) BrokerAdminToken(t *testing.T, userID string) string {
	t.Helper()
	return testutil.GenerateBrokerAdminToken(t, ts.PrivateKey, userID)
}

// MemberToken generates a member token for this test server
func (ts *TestServer) MemberToken(t *testing.T, userID string) string {
	t.Helper()
	return testutil.GenerateMemberToken(t, ts.PrivateKey, userID)
}

// NewClient creates an HTTP test client for this server with the given token
func (ts *TestServer) NewClient(t *testing.T, token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(t, ts.Server.URL, token)
}

package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/clearcomply/compliance-service/internal/auth"
)

// CreateTestVerifier creates a verifier configured for testing.
// It returns the verifier and the private key to sign test tokens.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	keys := auth.NewTestKeySet(TestKeyID, publicKey)

	cfg := auth.Config{
		Issuer: TestIssuer,
	}

	return auth.NewVerifier(cfg, keys), privateKey
}

// TestPermissions mirrors permissions.yml for handler tests.
func TestPermissions() auth.Permissions {
	return auth.Permissions{
		"broker_admin": {
			"organization:create",
			"organization:view",
			"session:manage",
			"document:create",
			"document:view",
			"rule:view",
			"rule:manage",
		},
		"member": {
			"organization:create",
			"organization:view",
			"session:manage",
			"document:create",
			"document:view",
			"rule:view",
		},
	}
}

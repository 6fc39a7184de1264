package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestIssuer matches the issuer the test verifier is configured with.
const TestIssuer = "https://auth.test.clearcomply.io/"

// TestKeyID is the kid the test key set is seeded with.
const TestKeyID = "test-key-id"

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a valid access token for testing. It carries the
// profile claims the onboarding flow reads.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, email, fullName string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if fullName != "" {
		claims["full_name"] = fullName
	}
	if len(roles) > 0 {
		claims["roles"] = interfaceSlice(roles)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateBrokerAdminToken creates a broker_admin token for testing
func GenerateBrokerAdminToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, userID+"@test.example", "Test Admin", []string{"broker_admin"})
}

// GenerateMemberToken creates a plain member token for testing
func GenerateMemberToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, userID+"@test.example", "Test Member", []string{"member"})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}

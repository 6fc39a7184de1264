package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated token. The user record
// itself is owned by the auth provider; this is a read-only view.
type Principal struct {
	UserID   string
	Email    string
	FullName string
	Roles    []string
	Claims   jwt.MapClaims
}

var (
	ErrNoToken       = errors.New("no token provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrMissingSub    = errors.New("missing sub claim")
)

// Verifier validates bearer tokens against the provider's signing keys.
type Verifier struct {
	cfg  Config
	keys *KeySet
}

// NewVerifier constructs a Verifier with config and key set.
func NewVerifier(cfg Config, keys *KeySet) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies a bearer token, validates issuer/exp and returns Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}
	tokenString = strings.TrimSpace(tokenString)
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		// enforce RS256
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	email, _ := claims["email"].(string)

	// Display name may arrive as full_name or name depending on the provider.
	fullName, _ := claims["full_name"].(string)
	if fullName == "" {
		fullName, _ = claims["name"].(string)
	}

	return &Principal{
		UserID:   sub,
		Email:    email,
		FullName: fullName,
		Roles:    extractRoles(claims),
		Claims:   claims,
	}, nil
}

// extractRoles reads roles from a flat "roles" claim or a nested
// realm_access.roles list.
func extractRoles(claims jwt.MapClaims) []string {
	var roles []string
	appendRoles := func(list []interface{}) {
		for _, r := range list {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	if rr, ok := claims["roles"].([]interface{}); ok {
		appendRoles(rr)
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if rr, ok := ra["roles"].([]interface{}); ok {
			appendRoles(rr)
		}
	}
	return roles
}

package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// KeySet caches the auth provider's RSA public keys by kid and refreshes them
// in the background.
type KeySet struct {
	url    string
	client *http.Client

	mu       sync.RWMutex
	keysByID map[string]*rsa.PublicKey

	refreshEvery time.Duration
	done         chan struct{}
}

// NewKeySet fetches the JWKS document once and then refreshes every
// refreshInterval. Pass 0 for the default of 15 minutes.
func NewKeySet(url string, refreshInterval time.Duration) (*KeySet, error) {
	if refreshInterval <= 0 {
		refreshInterval = 15 * time.Minute
	}
	ks := &KeySet{
		url:          url,
		client:       &http.Client{Timeout: 10 * time.Second},
		keysByID:     map[string]*rsa.PublicKey{},
		refreshEvery: refreshInterval,
		done:         make(chan struct{}),
	}
	if err := ks.refresh(); err != nil {
		return nil, fmt.Errorf("initial jwks fetch failed: %w", err)
	}
	go ks.refreshLoop()
	return ks, nil
}

func (ks *KeySet) refreshLoop() {
	ticker := time.NewTicker(ks.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = ks.refresh()
		case <-ks.done:
			return
		}
	}
}

// Close stops the background refresh.
func (ks *KeySet) Close() {
	close(ks.done)
}

func (ks *KeySet) refresh() error {
	resp, err := ks.client.Get(ks.url)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}

	fresh := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			return err
		}
		fresh[k.Kid] = pub
	}

	ks.mu.Lock()
	ks.keysByID = fresh
	ks.mu.Unlock()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus for kid %s: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent for kid %s: %w", k.Kid, err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// Get returns the public key for a kid, refreshing once on a miss so a
// rotated key is picked up without waiting for the ticker.
func (ks *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	pub := ks.keysByID[kid]
	ks.mu.RUnlock()
	if pub != nil {
		return pub, nil
	}

	if err := ks.refresh(); err != nil {
		return nil, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	pub = ks.keysByID[kid]
	if pub == nil {
		return nil, fmt.Errorf("jwks: no key with kid %q", kid)
	}
	return pub, nil
}

package organization

import (
	"context"
	"sync"
	"time"
)

// DefaultMembershipTTL bounds how stale a cached membership check may be.
// Active-organization reads re-validate through this cache on every request,
// so a revoked membership stops resolving within one TTL.
const DefaultMembershipTTL = 30 * time.Second

type cachedCheck struct {
	isMember  bool
	expiresAt time.Time
}

// MembershipCache answers "is user U a member of org O" with a short,
// explicit expiry in front of the membership directory.
type MembershipCache struct {
	service ServiceInterface
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]cachedCheck
	now     func() time.Time
}

func NewMembershipCache(service ServiceInterface, ttl time.Duration) *MembershipCache {
	if ttl <= 0 {
		ttl = DefaultMembershipTTL
	}
	return &MembershipCache{
		service: service,
		ttl:     ttl,
		entries: make(map[string]cachedCheck),
		now:     time.Now,
	}
}

func cacheKey(userID, orgID string) string {
	return userID + "\x00" + orgID
}

// IsMember checks the cache first, then the directory. Directory errors are
// never cached.
func (c *MembershipCache) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	key := cacheKey(userID, orgID)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.isMember, nil
	}

	isMember, err := c.service.IsMember(ctx, userID, orgID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.entries[key] = cachedCheck{isMember: isMember, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return isMember, nil
}

// Invalidate drops every cached entry for the user. Called after a switch or
// a new provisioning so the next read sees the fresh membership set.
func (c *MembershipCache) Invalidate(userID string) {
	prefix := userID + "\x00"
	c.mu.Lock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

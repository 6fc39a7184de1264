package session

import (
	"context"
	"log"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/organization"
)

// SwitchMetrics records the outcome of active-organization switch attempts.
type SwitchMetrics interface {
	RecordOrgSwitch(ctx context.Context, outcome string)
}

// Selector validates and persists which of a user's organizations the
// current session operates on.
type Selector struct {
	directory organization.ServiceInterface
	cache     *organization.MembershipCache
	store     *Store
	metrics   SwitchMetrics
}

func NewSelector(directory organization.ServiceInterface, cache *organization.MembershipCache, store *Store) *Selector {
	return &Selector{
		directory: directory,
		cache:     cache,
		store:     store,
	}
}

// NewSelectorWithMetrics creates a selector that records switch outcomes
func NewSelectorWithMetrics(directory organization.ServiceInterface, cache *organization.MembershipCache, store *Store, metrics SwitchMetrics) *Selector {
	s := NewSelector(directory, cache, store)
	s.metrics = metrics
	return s
}

func (s *Selector) recordSwitch(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOrgSwitch(ctx, outcome)
	}
}

// Switch sets the active organization after verifying the target is in the
// user's membership set by exact id match. A miss leaves the persisted
// selection untouched; the operation never falls back to another
// organization.
func (s *Selector) Switch(ctx context.Context, w http.ResponseWriter, userID, targetOrgID string) error {
	if userID == "" {
		return organization.ErrUnauthenticated
	}

	memberships, err := s.directory.MembershipsForUser(ctx, userID)
	if err != nil {
		s.recordSwitch(ctx, "error")
		return err
	}

	found := false
	for _, m := range memberships {
		if m.OrganizationID == targetOrgID {
			found = true
			break
		}
	}
	if !found {
		s.recordSwitch(ctx, "denied")
		return organization.ErrNotAMember
	}

	if err := s.store.Set(w, userID, targetOrgID); err != nil {
		s.recordSwitch(ctx, "error")
		return err
	}

	s.cache.Invalidate(userID)
	s.recordSwitch(ctx, "success")
	log.Printf("User %s switched active organization to %s", userID, targetOrgID)
	return nil
}

// Current reads the persisted selection and re-validates the membership on
// every read, so a selection made before a revocation stops resolving. A
// stale selection is rejected, never silently replaced.
func (s *Selector) Current(ctx context.Context, r *http.Request, userID string) (string, error) {
	if userID == "" {
		return "", organization.ErrUnauthenticated
	}

	orgID, err := s.store.Read(r, userID)
	if err != nil {
		return "", err
	}

	isMember, err := s.cache.IsMember(ctx, userID, orgID)
	if err != nil {
		return "", err
	}
	if !isMember {
		return "", organization.ErrNotAMember
	}

	return orgID, nil
}

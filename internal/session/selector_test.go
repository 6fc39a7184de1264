package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearcomply/compliance-service/internal/organization"
	"github.com/clearcomply/compliance-service/internal/pagination"
)

// directoryStub implements the membership directory against a fixed set
type directoryStub struct {
	memberships map[string][]organization.Membership
	err         error
}

func (d *directoryStub) MembershipsForUser(ctx context.Context, userID string) ([]organization.Membership, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.memberships[userID], nil
}

func (d *directoryStub) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	memberships, err := d.MembershipsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.OrganizationID == orgID {
			return true, nil
		}
	}
	return false, nil
}

func (d *directoryStub) Provision(ctx context.Context, userID, name, role string) (*organization.Organization, error) {
	return nil, errors.New("not implemented")
}

func (d *directoryStub) MembershipsForUserWithPagination(ctx context.Context, userID string, params pagination.Params) (*organization.PaginatedMembershipsResponse, error) {
	return nil, errors.New("not implemented")
}

func (d *directoryStub) MembersOfOrganization(ctx context.Context, requestingUserID, orgID string) ([]organization.Member, error) {
	return nil, errors.New("not implemented")
}

func (d *directoryStub) GetOrganization(ctx context.Context, userID, orgID string) (*organization.Organization, error) {
	return nil, errors.New("not implemented")
}

func newTestSelector(t *testing.T, directory *directoryStub) *Selector {
	t.Helper()
	store := testStore(t)
	cache := organization.NewMembershipCache(directory, 50*time.Millisecond)
	return NewSelector(directory, cache, store)
}

// TestSwitch_MemberSucceeds tests switching to an organization the user
// belongs to
func TestSwitch_MemberSucceeds(t *testing.T) {
	directory := &directoryStub{memberships: map[string][]organization.Membership{
		"user-1": {{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleBrokerAdmin}},
	}}
	selector := newTestSelector(t, directory)

	rec := httptest.NewRecorder()
	err := selector.Switch(context.Background(), rec, "user-1", "org-a")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	orgID, err := selector.Current(context.Background(), requestWithCookies(rec), "user-1")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if orgID != "org-a" {
		t.Errorf("Expected org-a, got %s", orgID)
	}
}

// TestSwitch_NonMemberRejected tests that switching to a foreign organization
// fails and leaves the previous selection untouched
func TestSwitch_NonMemberRejected(t *testing.T) {
	directory := &directoryStub{memberships: map[string][]organization.Membership{
		"user-1": {{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleMember}},
	}}
	selector := newTestSelector(t, directory)

	// Select org-a first
	rec := httptest.NewRecorder()
	if err := selector.Switch(context.Background(), rec, "user-1", "org-a"); err != nil {
		t.Fatalf("Switch to org-a failed: %v", err)
	}

	// Switching to org-b must fail without touching the cookie
	rec2 := httptest.NewRecorder()
	err := selector.Switch(context.Background(), rec2, "user-1", "org-b")
	if !errors.Is(err, organization.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("Expected no cookie written on a rejected switch")
	}

	// The original selection still resolves
	orgID, err := selector.Current(context.Background(), requestWithCookies(rec), "user-1")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if orgID != "org-a" {
		t.Errorf("Expected selection to remain org-a, got %s", orgID)
	}
}

// TestSwitch_NoSubstitution tests that a failed switch never falls back to
// some other organization the user does belong to
func TestSwitch_NoSubstitution(t *testing.T) {
	directory := &directoryStub{memberships: map[string][]organization.Membership{
		"user-1": {
			{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleMember},
			{OrganizationID: "org-b", UserID: "user-1", Role: organization.RoleMember},
		},
	}}
	selector := newTestSelector(t, directory)

	rec := httptest.NewRecorder()
	err := selector.Switch(context.Background(), rec, "user-1", "org-c")

	if !errors.Is(err, organization.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("Expected no cookie written when the target is not in the membership set")
	}
}

// TestSwitch_DirectoryError tests that a directory outage propagates
func TestSwitch_DirectoryError(t *testing.T) {
	directory := &directoryStub{err: organization.ErrStoreUnavailable}
	selector := newTestSelector(t, directory)

	rec := httptest.NewRecorder()
	err := selector.Switch(context.Background(), rec, "user-1", "org-a")

	if !errors.Is(err, organization.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

type switchMetricsStub struct {
	outcomes []string
}

func (m *switchMetricsStub) RecordOrgSwitch(ctx context.Context, outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

// TestSwitch_RecordsOutcome tests the per-outcome switch counter
func TestSwitch_RecordsOutcome(t *testing.T) {
	cases := []struct {
		name      string
		directory *directoryStub
		target    string
		want      string
	}{
		{
			name: "member switch succeeds",
			directory: &directoryStub{memberships: map[string][]organization.Membership{
				"user-1": {{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleMember}},
			}},
			target: "org-a",
			want:   "success",
		},
		{
			name: "non-member denied",
			directory: &directoryStub{memberships: map[string][]organization.Membership{
				"user-1": {{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleMember}},
			}},
			target: "org-b",
			want:   "denied",
		},
		{
			name:      "directory outage",
			directory: &directoryStub{err: organization.ErrStoreUnavailable},
			target:    "org-a",
			want:      "error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &switchMetricsStub{}
			store := testStore(t)
			cache := organization.NewMembershipCache(tc.directory, 50*time.Millisecond)
			selector := NewSelectorWithMetrics(tc.directory, cache, store, metrics)

			rec := httptest.NewRecorder()
			selector.Switch(context.Background(), rec, "user-1", tc.target)

			if len(metrics.outcomes) != 1 || metrics.outcomes[0] != tc.want {
				t.Errorf("Expected outcome [%s], got %v", tc.want, metrics.outcomes)
			}
		})
	}
}

// TestCurrent_RevokedMembershipRejected tests per-read re-validation: a
// selection made before a revocation stops resolving
func TestCurrent_RevokedMembershipRejected(t *testing.T) {
	directory := &directoryStub{memberships: map[string][]organization.Membership{
		"user-1": {{OrganizationID: "org-a", UserID: "user-1", Role: organization.RoleMember}},
	}}
	selector := newTestSelector(t, directory)

	rec := httptest.NewRecorder()
	if err := selector.Switch(context.Background(), rec, "user-1", "org-a"); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}

	// Revoke the membership out from under the cookie
	directory.memberships["user-1"] = nil

	// Past the cache TTL the revocation must be visible
	time.Sleep(60 * time.Millisecond)

	_, err := selector.Current(context.Background(), requestWithCookies(rec), "user-1")
	if !errors.Is(err, organization.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember after revocation, got %v", err)
	}
}

// TestCurrent_NoSelection tests the fresh-session read
func TestCurrent_NoSelection(t *testing.T) {
	directory := &directoryStub{}
	selector := newTestSelector(t, directory)

	req := httptest.NewRequest(http.MethodGet, "/session/organization", nil)
	_, err := selector.Current(context.Background(), req, "user-1")

	if !errors.Is(err, ErrNoSelection) {
		t.Errorf("Expected ErrNoSelection, got %v", err)
	}
}

// TestCurrent_Unauthenticated tests the missing-user guard
func TestCurrent_Unauthenticated(t *testing.T) {
	selector := newTestSelector(t, &directoryStub{})

	req := httptest.NewRequest(http.MethodGet, "/session/organization", nil)
	_, err := selector.Current(context.Background(), req, "")

	if !errors.Is(err, organization.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}
}

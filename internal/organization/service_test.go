package organization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/pagination"
	"github.com/clearcomply/compliance-service/internal/testutil"
)

// TestProvision_Success tests successful provisioning with an admin membership
func TestProvision_Success(t *testing.T) {
	var gotReq ProvisionRequest
	mockRepo := &mockRepository{
		provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
			gotReq = req
			return &Organization{
				ID:        "org-123",
				Name:      req.Name,
				Status:    "active",
				CreatedAt: time.Now(),
			}, nil
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(mockRepo, publisher)

	org, err := service.Provision(context.Background(), "user-1", "Acme Brokerage", RoleBrokerAdmin)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if org == nil {
		t.Fatal("Expected organization, got nil")
	}
	if org.Name != "Acme Brokerage" {
		t.Errorf("Expected name 'Acme Brokerage', got '%s'", org.Name)
	}
	if gotReq.UserID != "user-1" {
		t.Errorf("Expected membership for user-1, got '%s'", gotReq.UserID)
	}
	if gotReq.Role != RoleBrokerAdmin {
		t.Errorf("Expected role broker_admin, got '%s'", gotReq.Role)
	}

	events := publisher.GetEventsByKey(messaging.EventOrganizationProvisioned)
	if len(events) != 1 {
		t.Errorf("Expected 1 organization.provisioned event, got %d", len(events))
	}
	if len(publisher.GetEventsByKey(messaging.EventMembershipCreated)) != 1 {
		t.Error("Expected 1 membership.created event")
	}
}

// TestProvision_DefaultsRole tests that an empty role becomes broker_admin
func TestProvision_DefaultsRole(t *testing.T) {
	var gotReq ProvisionRequest
	mockRepo := &mockRepository{
		provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
			gotReq = req
			return &Organization{ID: "org-123", Name: req.Name, Status: "active", CreatedAt: time.Now()}, nil
		},
	}
	service := NewService(mockRepo, nil)

	_, err := service.Provision(context.Background(), "user-1", "Acme", "")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotReq.Role != RoleBrokerAdmin {
		t.Errorf("Expected default role broker_admin, got '%s'", gotReq.Role)
	}
}

// TestProvision_Unauthenticated tests rejection without a user id
func TestProvision_Unauthenticated(t *testing.T) {
	service := NewService(&mockRepository{}, nil)

	org, err := service.Provision(context.Background(), "", "Acme", RoleBrokerAdmin)

	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}
	if org != nil {
		t.Error("Expected nil organization")
	}
}

// TestProvision_EmptyName tests validation for empty name
func TestProvision_EmptyName(t *testing.T) {
	service := NewService(&mockRepository{}, nil)

	org, err := service.Provision(context.Background(), "user-1", "", RoleBrokerAdmin)

	if !errors.Is(err, ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}
	if org != nil {
		t.Error("Expected nil organization")
	}
}

// TestProvision_RepositoryError tests that a storage failure surfaces as one
// provisioning error and nothing is published
func TestProvision_RepositoryError(t *testing.T) {
	mockRepo := &mockRepository{
		provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
			return nil, errors.New("database connection failed")
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(mockRepo, publisher)

	org, err := service.Provision(context.Background(), "user-1", "Acme", RoleBrokerAdmin)

	if !errors.Is(err, ErrProvisioningFailed) {
		t.Errorf("Expected ErrProvisioningFailed, got %v", err)
	}
	if org != nil {
		t.Error("Expected nil organization")
	}
	if publisher.CountEvents() != 0 {
		t.Errorf("Expected no events on failure, got %d", publisher.CountEvents())
	}
}

// TestProvision_AlreadyMember tests that the duplicate-membership error passes
// through unwrapped
func TestProvision_AlreadyMember(t *testing.T) {
	mockRepo := &mockRepository{
		provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
			return nil, ErrAlreadyMember
		},
	}
	service := NewService(mockRepo, nil)

	_, err := service.Provision(context.Background(), "user-1", "Acme", RoleBrokerAdmin)

	if !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}
	if errors.Is(err, ErrProvisioningFailed) {
		t.Error("ErrAlreadyMember must not be wrapped as a provisioning failure")
	}
}

// TestProvision_PublishFailureDoesNotFail tests that a broker outage does not
// undo a committed provisioning
func TestProvision_PublishFailureDoesNotFail(t *testing.T) {
	mockRepo := &mockRepository{
		provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
			return &Organization{ID: "org-123", Name: req.Name, Status: "active", CreatedAt: time.Now()}, nil
		},
	}
	publisher := testutil.NewMockPublisher()
	publisher.FailWith(errors.New("broker unavailable"))
	service := NewService(mockRepo, publisher)

	org, err := service.Provision(context.Background(), "user-1", "Acme", RoleBrokerAdmin)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if org == nil {
		t.Fatal("Expected organization despite publish failure")
	}
}

// TestMembershipsForUser_Success tests the membership directory read
func TestMembershipsForUser_Success(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsFunc: func(ctx context.Context, userID string) ([]Membership, error) {
			return []Membership{
				{OrganizationID: "org-1", OrganizationName: "Org 1", UserID: userID, Role: RoleBrokerAdmin},
				{OrganizationID: "org-2", OrganizationName: "Org 2", UserID: userID, Role: RoleMember},
			}, nil
		},
	}
	service := NewService(mockRepo, nil)

	memberships, err := service.MembershipsForUser(context.Background(), "user-1")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(memberships) != 2 {
		t.Fatalf("Expected 2 memberships, got %d", len(memberships))
	}
	if memberships[0].OrganizationName != "Org 1" {
		t.Errorf("Expected organization name in membership, got '%s'", memberships[0].OrganizationName)
	}
}

// TestMembershipsForUser_Unauthenticated tests rejection without a user id
func TestMembershipsForUser_Unauthenticated(t *testing.T) {
	service := NewService(&mockRepository{}, nil)

	_, err := service.MembershipsForUser(context.Background(), "")

	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", err)
	}
}

// TestMembershipsForUser_StoreError tests the store-unavailable wrapping
func TestMembershipsForUser_StoreError(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsFunc: func(ctx context.Context, userID string) ([]Membership, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := NewService(mockRepo, nil)

	_, err := service.MembershipsForUser(context.Background(), "user-1")

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

// TestMembershipsForUserWithPagination tests page metadata
func TestMembershipsForUserWithPagination(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsPaginatedFunc: func(ctx context.Context, userID string, limit, offset int) ([]Membership, int, error) {
			return []Membership{
				{OrganizationID: "org-1", OrganizationName: "Org 1", UserID: userID, Role: RoleMember},
			}, 25, nil
		},
	}
	service := NewService(mockRepo, nil)

	resp, err := service.MembershipsForUserWithPagination(context.Background(), "user-1", pagination.Params{Page: 2, Limit: 10})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success to be true")
	}
	if resp.Pagination.TotalRecords != 25 {
		t.Errorf("Expected 25 total records, got %d", resp.Pagination.TotalRecords)
	}
	if resp.Pagination.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", resp.Pagination.TotalPages)
	}
	if !resp.Pagination.HasPrevious {
		t.Error("Expected HasPrevious on page 2")
	}
}

// TestIsMember tests the exact-id membership check
func TestIsMember(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsFunc: func(ctx context.Context, userID string) ([]Membership, error) {
			return []Membership{
				{OrganizationID: "org-1", UserID: userID, Role: RoleMember},
			}, nil
		},
	}
	service := NewService(mockRepo, nil)

	ok, err := service.IsMember(context.Background(), "user-1", "org-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !ok {
		t.Error("Expected user-1 to be a member of org-1")
	}

	ok, err = service.IsMember(context.Background(), "user-1", "org-2")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if ok {
		t.Error("Expected user-1 not to be a member of org-2")
	}
}

// TestMembersOfOrganization_AdminOnly tests that listing members requires a
// broker_admin membership in that organization
func TestMembersOfOrganization_AdminOnly(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsFunc: func(ctx context.Context, userID string) ([]Membership, error) {
			return []Membership{
				{OrganizationID: "org-1", UserID: userID, Role: RoleMember},
				{OrganizationID: "org-2", UserID: userID, Role: RoleBrokerAdmin},
			}, nil
		},
		listMembersFunc: func(ctx context.Context, orgID string) ([]Member, error) {
			return []Member{
				{UserID: "user-1", Role: RoleBrokerAdmin},
				{UserID: "user-2", Role: RoleMember},
			}, nil
		},
	}
	service := NewService(mockRepo, nil)

	// Plain member of org-1: denied
	_, err := service.MembersOfOrganization(context.Background(), "user-1", "org-1")
	if !errors.Is(err, ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember for non-admin, got %v", err)
	}

	// broker_admin of org-2: allowed
	members, err := service.MembersOfOrganization(context.Background(), "user-1", "org-2")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(members))
	}
}

// TestGetOrganization_NotAMember tests that reads are membership-scoped
func TestGetOrganization_NotAMember(t *testing.T) {
	mockRepo := &mockRepository{
		listMembershipsFunc: func(ctx context.Context, userID string) ([]Membership, error) {
			return []Membership{}, nil
		},
	}
	service := NewService(mockRepo, nil)

	_, err := service.GetOrganization(context.Background(), "user-1", "org-1")

	if !errors.Is(err, ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
}

type provisioningMetricsStub struct {
	outcomes []string
}

func (m *provisioningMetricsStub) RecordProvisioning(ctx context.Context, outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

// TestProvision_RecordsOutcome tests the per-outcome provisioning counter
func TestProvision_RecordsOutcome(t *testing.T) {
	cases := []struct {
		name    string
		repoErr error
		want    string
	}{
		{"success", nil, "success"},
		{"already a member", ErrAlreadyMember, "already_member"},
		{"storage failure", errors.New("database connection failed"), "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &mockRepository{
				provisionFunc: func(ctx context.Context, req ProvisionRequest) (*Organization, error) {
					if tc.repoErr != nil {
						return nil, tc.repoErr
					}
					return &Organization{ID: "org-123", Name: req.Name, Status: "active", CreatedAt: time.Now()}, nil
				},
			}
			metrics := &provisioningMetricsStub{}
			service := NewServiceWithMetrics(mockRepo, nil, metrics)

			service.Provision(context.Background(), "user-1", "Acme", RoleBrokerAdmin)

			if len(metrics.outcomes) != 1 || metrics.outcomes[0] != tc.want {
				t.Errorf("Expected outcome [%s], got %v", tc.want, metrics.outcomes)
			}
		})
	}
}

// Mock repository for testing
type mockRepository struct {
	provisionFunc                func(ctx context.Context, req ProvisionRequest) (*Organization, error)
	listMembershipsFunc          func(ctx context.Context, userID string) ([]Membership, error)
	listMembershipsPaginatedFunc func(ctx context.Context, userID string, limit, offset int) ([]Membership, int, error)
	listMembersFunc              func(ctx context.Context, orgID string) ([]Member, error)
	getOrgFunc                   func(ctx context.Context, id string) (*Organization, error)
	deleteOrgFunc                func(ctx context.Context, id string) error
	listOrphanedFunc             func(ctx context.Context, cutoff time.Time) ([]Organization, error)
}

func (m *mockRepository) Provision(ctx context.Context, req ProvisionRequest) (*Organization, error) {
	if m.provisionFunc != nil {
		return m.provisionFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]Membership, error) {
	if m.listMembershipsFunc != nil {
		return m.listMembershipsFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) ListMembershipsByUserWithPagination(ctx context.Context, userID string, limit, offset int) ([]Membership, int, error) {
	if m.listMembershipsPaginatedFunc != nil {
		return m.listMembershipsPaginatedFunc(ctx, userID, limit, offset)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockRepository) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	if m.listMembersFunc != nil {
		return m.listMembersFunc(ctx, orgID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	if m.getOrgFunc != nil {
		return m.getOrgFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) DeleteOrganization(ctx context.Context, id string) error {
	if m.deleteOrgFunc != nil {
		return m.deleteOrgFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ListOrphanedOrganizations(ctx context.Context, cutoff time.Time) ([]Organization, error) {
	if m.listOrphanedFunc != nil {
		return m.listOrphanedFunc(ctx, cutoff)
	}
	return nil, errors.New("not implemented")
}

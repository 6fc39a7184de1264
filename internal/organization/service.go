package organization

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/pagination"
)

// ProvisioningMetrics records the outcome of provisioning attempts.
type ProvisioningMetrics interface {
	RecordProvisioning(ctx context.Context, outcome string)
}

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   ProvisioningMetrics
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
	}
}

// NewServiceWithMetrics creates a service that records provisioning outcomes
func NewServiceWithMetrics(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics ProvisioningMetrics) *Service {
	s := NewService(repo, publisher)
	s.metrics = metrics
	return s
}

func (s *Service) recordProvisioning(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordProvisioning(ctx, outcome)
	}
}

// Provision creates an organization plus its initial admin membership. This is
// the only provisioning path: the HTTP create endpoint and the onboarding
// trigger both go through it.
func (s *Service) Provision(ctx context.Context, userID, name, role string) (*Organization, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if role == "" {
		role = RoleBrokerAdmin
	}

	org, err := s.repo.Provision(ctx, ProvisionRequest{
		Name:   name,
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			s.recordProvisioning(ctx, "already_member")
			return nil, err
		}
		s.recordProvisioning(ctx, "error")
		return nil, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	s.recordProvisioning(ctx, "success")
	log.Printf("Provisioned organization %s (%q) for user %s with role %s", org.ID, org.Name, userID, role)

	if s.publisher != nil {
		event := messaging.OrganizationProvisionedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventOrganizationProvisioned),
			Data: messaging.OrganizationProvisionedData{
				OrganizationID:   org.ID,
				OrganizationName: org.Name,
				UserID:           userID,
				Role:             role,
				CreatedAt:        org.CreatedAt,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventOrganizationProvisioned, event); err != nil {
			log.Printf("Warning: failed to publish organization.provisioned event: %v", err)
			// Provisioning already committed; the event is best-effort.
		}

		membershipEvent := messaging.MembershipCreatedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventMembershipCreated),
			Data: messaging.MembershipCreatedData{
				OrganizationID: org.ID,
				UserID:         userID,
				Role:           role,
				CreatedAt:      org.CreatedAt,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventMembershipCreated, membershipEvent); err != nil {
			log.Printf("Warning: failed to publish membership.created event: %v", err)
		}
	}

	return org, nil
}

// MembershipsForUser is the membership directory read: every (organization,
// role) pair for one user.
func (s *Service) MembershipsForUser(ctx context.Context, userID string) ([]Membership, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return memberships, nil
}

// MembershipsForUserWithPagination retrieves one page of a user's memberships.
func (s *Service) MembershipsForUserWithPagination(ctx context.Context, userID string, params pagination.Params) (*PaginatedMembershipsResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	params.Validate()

	memberships, totalCount, err := s.repo.ListMembershipsByUserWithPagination(ctx, userID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	meta := params.CalculateMeta(totalCount)

	return &PaginatedMembershipsResponse{
		Success:     true,
		Memberships: memberships,
		Pagination:  meta,
	}, nil
}

// IsMember reports whether the user currently holds a membership in the
// organization, by exact id match against the directory.
func (s *Service) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	memberships, err := s.MembershipsForUser(ctx, userID)
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

// MembersOfOrganization lists the membership rows of an organization. The
// requesting user must hold a broker_admin membership in it.
func (s *Service) MembersOfOrganization(ctx context.Context, requestingUserID, orgID string) ([]Member, error) {
	if requestingUserID == "" {
		return nil, ErrUnauthenticated
	}

	memberships, err := s.MembershipsForUser(ctx, requestingUserID)
	if err != nil {
		return nil, err
	}

	isAdmin := false
	for _, m := range memberships {
		if m.OrganizationID == orgID && m.Role == RoleBrokerAdmin {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		return nil, ErrNotAMember
	}

	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return members, nil
}

// GetOrganization retrieves a single organization the user is a member of.
func (s *Service) GetOrganization(ctx context.Context, userID, orgID string) (*Organization, error) {
	ok, err := s.IsMember(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAMember
	}
	return s.repo.GetOrganization(ctx, orgID)
}

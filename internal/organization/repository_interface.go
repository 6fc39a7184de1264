package organization

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for organization data access
type RepositoryInterface interface {
	Provision(ctx context.Context, req ProvisionRequest) (*Organization, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]Membership, error)
	ListMembershipsByUserWithPagination(ctx context.Context, userID string, limit, offset int) ([]Membership, int, error)
	ListMembers(ctx context.Context, orgID string) ([]Member, error)
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	ListOrphanedOrganizations(ctx context.Context, cutoff time.Time) ([]Organization, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)

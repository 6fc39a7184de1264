package organization

import (
	"context"

	"github.com/clearcomply/compliance-service/internal/pagination"
)

// ServiceInterface defines the contract for organization business logic
type ServiceInterface interface {
	Provision(ctx context.Context, userID, name, role string) (*Organization, error)
	MembershipsForUser(ctx context.Context, userID string) ([]Membership, error)
	MembershipsForUserWithPagination(ctx context.Context, userID string, params pagination.Params) (*PaginatedMembershipsResponse, error)
	IsMember(ctx context.Context, userID, orgID string) (bool, error)
	MembersOfOrganization(ctx context.Context, requestingUserID, orgID string) ([]Member, error)
	GetOrganization(ctx context.Context, userID, orgID string) (*Organization, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

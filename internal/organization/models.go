package organization

import (
	"time"

	"github.com/clearcomply/compliance-service/internal/pagination"
)

// Membership roles. The provisioner always grants the creating user
// RoleBrokerAdmin; additional members join with RoleMember.
const (
	RoleBrokerAdmin = "broker_admin"
	RoleMember      = "member"
)

// Organization represents a tenant row.
type Organization struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Membership links a user to an organization with a role. OrganizationName is
// denormalized into the read model so membership listings don't need a second
// round trip.
type Membership struct {
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	UserID           string    `json:"user_id"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProvisionRequest describes a new organization plus its initial admin
// membership, created as one unit.
type ProvisionRequest struct {
	Name   string `json:"name"`
	UserID string `json:"-"`
	Role   string `json:"-"`
}

// Member is the org-admin view of a single membership row.
type Member struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// PaginatedMembershipsResponse is one page of a user's memberships.
type PaginatedMembershipsResponse struct {
	Success     bool            `json:"success"`
	Memberships []Membership    `json:"memberships"`
	Pagination  pagination.Meta `json:"pagination"`
}

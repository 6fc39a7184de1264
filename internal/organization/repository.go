package organization

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Provision inserts the organization row and its initial membership in one
// transaction. If either insert fails nothing becomes visible; the caller
// sees a single error.
func (r *Repository) Provision(ctx context.Context, req ProvisionRequest) (*Organization, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orgID := uuid.New()
	createdAt := time.Now()

	var org Organization
	err = tx.QueryRowContext(ctx, `
		INSERT INTO comply.organizations (id, name, status, created_at)
		VALUES ($1, $2, 'active', $3)
		RETURNING id, name, status, created_at
	`, orgID, req.Name, createdAt).Scan(
		&org.ID,
		&org.Name,
		&org.Status,
		&org.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert organization: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comply.memberships (organization_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, orgID, req.UserID, req.Role, createdAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, nil
}

// ListMembershipsByUser returns every membership of the given user, newest
// first, joined with the organization name.
func (r *Repository) ListMembershipsByUser(ctx context.Context, userID string) ([]Membership, error) {
	query := `
		SELECT m.organization_id, o.name, m.user_id, m.role, m.created_at
		FROM comply.memberships m
		JOIN comply.organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY m.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var m Membership
		err := rows.Scan(
			&m.OrganizationID,
			&m.OrganizationName,
			&m.UserID,
			&m.Role,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, nil
}

// ListMembershipsByUserWithPagination returns one page of a user's memberships
// plus the total count.
func (r *Repository) ListMembershipsByUserWithPagination(ctx context.Context, userID string, limit, offset int) ([]Membership, int, error) {
	var totalCount int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM comply.memberships m
		JOIN comply.organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
	`, userID).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count memberships: %w", err)
	}

	query := `
		SELECT m.organization_id, o.name, m.user_id, m.role, m.created_at
		FROM comply.memberships m
		JOIN comply.organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		var m Membership
		err := rows.Scan(
			&m.OrganizationID,
			&m.OrganizationName,
			&m.UserID,
			&m.Role,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating memberships: %w", err)
	}

	return memberships, totalCount, nil
}

// ListMembers returns all membership rows of one organization.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	query := `
		SELECT user_id, role, created_at
		FROM comply.memberships
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

func (r *Repository) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM comply.organizations
		WHERE id = $1 AND deleted_at IS NULL
	`

	var org Organization
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.Status,
		&org.CreatedAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query organization: %w", err)
	}

	if updatedAt.Valid {
		org.UpdatedAt = &updatedAt.Time
	}

	return &org, nil
}

// DeleteOrganization permanently removes an organization and its memberships.
// Used by the orphan cleanup job only; the API surface never hard-deletes.
func (r *Repository) DeleteOrganization(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comply.memberships WHERE organization_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM comply.organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrgNotFound
	}

	return tx.Commit()
}

// ListOrphanedOrganizations returns organizations created before the cutoff
// that have no membership rows at all. A transactional provisioner cannot
// produce these, but operator-created or legacy rows can.
func (r *Repository) ListOrphanedOrganizations(ctx context.Context, cutoff time.Time) ([]Organization, error) {
	query := `
		SELECT o.id, o.name, o.status, o.created_at
		FROM comply.organizations o
		WHERE o.created_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM comply.memberships m WHERE m.organization_id = o.id
		)
		ORDER BY o.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Status, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

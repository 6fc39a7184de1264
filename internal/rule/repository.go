package rule

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
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

func (r *Repository) CreateRule(ctx context.Context, orgID string, req CreateRuleRequest) (*Rule, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	query := `
		INSERT INTO comply.rules (id, organization_id, kind, max_amount_cents, currencies, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, organization_id, kind, max_amount_cents, currencies, enabled, created_at
	`

	var rule Rule
	var maxAmount sql.NullInt64

	err := r.db.QueryRowContext(ctx, query,
		uuid.New(),
		orgID,
		req.Kind,
		req.MaxAmountCents,
		pq.Array(req.Currencies),
		enabled,
		time.Now(),
	).Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.Kind,
		&maxAmount,
		pq.Array(&rule.Currencies),
		&rule.Enabled,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	if maxAmount.Valid {
		rule.MaxAmountCents = &maxAmount.Int64
	}

	return &rule, nil
}

// ListRules returns every rule of the organization, enabled or not.
func (r *Repository) ListRules(ctx context.Context, orgID string) ([]Rule, error) {
	query := `
		SELECT id, organization_id, kind, max_amount_cents, currencies, enabled, created_at, updated_at
		FROM comply.rules
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// ListEnabledRules returns only the rules document evaluation applies.
func (r *Repository) ListEnabledRules(ctx context.Context, orgID string) ([]Rule, error) {
	query := `
		SELECT id, organization_id, kind, max_amount_cents, currencies, enabled, created_at, updated_at
		FROM comply.rules
		WHERE organization_id = $1 AND enabled = true
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *Repository) GetRule(ctx context.Context, orgID, id string) (*Rule, error) {
	query := `
		SELECT id, organization_id, kind, max_amount_cents, currencies, enabled, created_at, updated_at
		FROM comply.rules
		WHERE organization_id = $1 AND id = $2
	`

	row := r.db.QueryRowContext(ctx, query, orgID, id)
	rule, err := scanRuleRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}
	return rule, nil
}

func (r *Repository) UpdateRule(ctx context.Context, orgID, id string, req UpdateRuleRequest) (*Rule, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	if req.MaxAmountCents != nil {
		updates = append(updates, fmt.Sprintf("max_amount_cents = $%d", argIndex))
		args = append(args, *req.MaxAmountCents)
		argIndex++
	}
	if req.Currencies != nil {
		updates = append(updates, fmt.Sprintf("currencies = $%d", argIndex))
		args = append(args, pq.Array(req.Currencies))
		argIndex++
	}
	if req.Enabled != nil {
		updates = append(updates, fmt.Sprintf("enabled = $%d", argIndex))
		args = append(args, *req.Enabled)
		argIndex++
	}

	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, orgID, id)

	query := fmt.Sprintf(`
		UPDATE comply.rules
		SET %s
		WHERE organization_id = $%d AND id = $%d
		RETURNING id, organization_id, kind, max_amount_cents, currencies, enabled, created_at, updated_at
	`, strings.Join(updates, ", "), argIndex, argIndex+1)

	row := r.db.QueryRowContext(ctx, query, args...)
	rule, err := scanRuleRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return rule, nil
}

func (r *Repository) DeleteRule(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM comply.rules WHERE organization_id = $1 AND id = $2
	`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(rows *sql.Rows) (*Rule, error) {
	rule, err := scanRuleRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	return rule, nil
}

func scanRuleRow(row rowScanner) (*Rule, error) {
	var rule Rule
	var maxAmount sql.NullInt64
	var updatedAt sql.NullTime

	err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.Kind,
		&maxAmount,
		pq.Array(&rule.Currencies),
		&rule.Enabled,
		&rule.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if maxAmount.Valid {
		rule.MaxAmountCents = &maxAmount.Int64
	}
	if updatedAt.Valid {
		rule.UpdatedAt = &updatedAt.Time
	}
	return &rule, nil
}

package rule

import "context"

// RepositoryInterface defines the contract for rule data access
type RepositoryInterface interface {
	CreateRule(ctx context.Context, orgID string, req CreateRuleRequest) (*Rule, error)
	ListRules(ctx context.Context, orgID string) ([]Rule, error)
	ListEnabledRules(ctx context.Context, orgID string) ([]Rule, error)
	GetRule(ctx context.Context, orgID, id string) (*Rule, error)
	UpdateRule(ctx context.Context, orgID, id string, req UpdateRuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, orgID, id string) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)

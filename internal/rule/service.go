package rule

import (
	"context"
	"fmt"
)

type Service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateRule(ctx context.Context, orgID string, req CreateRuleRequest) (*Rule, error) {
	switch req.Kind {
	case KindMaxAmount:
		if req.MaxAmountCents == nil || *req.MaxAmountCents <= 0 {
			return nil, ErrMissingThreshold
		}
	case KindCurrencyAllowlist:
		if len(req.Currencies) == 0 {
			return nil, ErrMissingCurrency
		}
	default:
		return nil, ErrInvalidKind
	}

	rule, err := s.repo.CreateRule(ctx, orgID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, orgID string) ([]Rule, error) {
	rules, err := s.repo.ListRules(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// EnabledRules feeds document evaluation.
func (s *Service) EnabledRules(ctx context.Context, orgID string) ([]Rule, error) {
	rules, err := s.repo.ListEnabledRules(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}
	return rules, nil
}

func (s *Service) GetRule(ctx context.Context, orgID, id string) (*Rule, error) {
	return s.repo.GetRule(ctx, orgID, id)
}

func (s *Service) UpdateRule(ctx context.Context, orgID, id string, req UpdateRuleRequest) (*Rule, error) {
	rule, err := s.repo.UpdateRule(ctx, orgID, id, req)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, orgID, id string) error {
	return s.repo.DeleteRule(ctx, orgID, id)
}

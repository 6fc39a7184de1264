package rule

import "time"

// Rule kinds understood by document evaluation.
const (
	KindMaxAmount         = "max_amount"
	KindCurrencyAllowlist = "currency_allowlist"
)

// Rule is a per-organization compliance rule applied to uploaded transaction
// documents.
type Rule struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Kind           string     `json:"kind"`
	MaxAmountCents *int64     `json:"max_amount_cents,omitempty"`
	Currencies     []string   `json:"currencies,omitempty"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type CreateRuleRequest struct {
	Kind           string   `json:"kind"`
	MaxAmountCents *int64   `json:"max_amount_cents,omitempty"`
	Currencies     []string `json:"currencies,omitempty"`
	Enabled        *bool    `json:"enabled,omitempty"`
}

type UpdateRuleRequest struct {
	MaxAmountCents *int64   `json:"max_amount_cents,omitempty"`
	Currencies     []string `json:"currencies,omitempty"`
	Enabled        *bool    `json:"enabled,omitempty"`
}

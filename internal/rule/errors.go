package rule

import "errors"

var (
	ErrInvalidKind      = errors.New("invalid rule kind")
	ErrMissingThreshold = errors.New("max_amount rules require max_amount_cents")
	ErrMissingCurrency  = errors.New("currency_allowlist rules require at least one currency")
	ErrRuleNotFound     = errors.New("rule not found")
)

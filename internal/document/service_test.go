package document

import (
	"context"
	"errors"
	"testing"

	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/pagination"
	"github.com/clearcomply/compliance-service/internal/rule"
	"github.com/clearcomply/compliance-service/internal/testutil"
)

// ruleSourceStub feeds a fixed rule set into evaluation
type ruleSourceStub struct {
	rules []rule.Rule
	err   error
}

func (r *ruleSourceStub) EnabledRules(ctx context.Context, orgID string) ([]rule.Rule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rules, nil
}

func passthroughRepo() *mockDocRepository {
	return &mockDocRepository{
		createFunc: func(ctx context.Context, doc Document) (*Document, error) {
			doc.ID = "doc-1"
			return &doc, nil
		},
	}
}

func maxAmountRule(id string, cents int64) rule.Rule {
	return rule.Rule{ID: id, Kind: rule.KindMaxAmount, MaxAmountCents: &cents, Enabled: true}
}

// TestRecordUpload_Cleared tests a document that violates nothing
func TestRecordUpload_Cleared(t *testing.T) {
	rules := &ruleSourceStub{rules: []rule.Rule{maxAmountRule("rule-1", 100000)}}
	publisher := testutil.NewMockPublisher()
	service := NewService(passthroughRepo(), rules, publisher)

	doc, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "q1-transactions.csv",
		AmountCents: 50000,
		Currency:    "eur",
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Status != StatusCleared {
		t.Errorf("Expected status cleared, got %s", doc.Status)
	}
	if len(doc.Violations) != 0 {
		t.Errorf("Expected no violations, got %v", doc.Violations)
	}
	if doc.Currency != "EUR" {
		t.Errorf("Expected normalized currency EUR, got %s", doc.Currency)
	}

	if len(publisher.GetEventsByKey(messaging.EventDocumentUploaded)) != 1 {
		t.Error("Expected one document.uploaded event")
	}
	if len(publisher.GetEventsByKey(messaging.EventDocumentFlagged)) != 0 {
		t.Error("Expected no document.flagged event for a cleared document")
	}
}

// TestRecordUpload_FlaggedOverThreshold tests the max_amount rule
func TestRecordUpload_FlaggedOverThreshold(t *testing.T) {
	rules := &ruleSourceStub{rules: []rule.Rule{maxAmountRule("rule-1", 100000)}}
	publisher := testutil.NewMockPublisher()
	service := NewService(passthroughRepo(), rules, publisher)

	doc, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "big-transfer.pdf",
		AmountCents: 250000,
		Currency:    "EUR",
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Status != StatusFlagged {
		t.Errorf("Expected status flagged, got %s", doc.Status)
	}
	if len(doc.Violations) != 1 || doc.Violations[0] != "rule-1" {
		t.Errorf("Expected violation of rule-1, got %v", doc.Violations)
	}

	if len(publisher.GetEventsByKey(messaging.EventDocumentFlagged)) != 1 {
		t.Error("Expected one document.flagged event")
	}
}

// TestRecordUpload_CurrencyAllowlist tests the allowlist rule with
// case-insensitive matching
func TestRecordUpload_CurrencyAllowlist(t *testing.T) {
	rules := &ruleSourceStub{rules: []rule.Rule{
		{ID: "rule-ccy", Kind: rule.KindCurrencyAllowlist, Currencies: []string{"eur", "USD"}, Enabled: true},
	}}
	service := NewService(passthroughRepo(), rules, nil)

	// Allowed currency, different casing
	doc, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "ok.csv",
		AmountCents: 100,
		Currency:    "Eur",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Status != StatusCleared {
		t.Errorf("Expected cleared for allowlisted currency, got %s", doc.Status)
	}

	// Disallowed currency
	doc, err = service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "bad.csv",
		AmountCents: 100,
		Currency:    "GBP",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if doc.Status != StatusFlagged {
		t.Errorf("Expected flagged for non-allowlisted currency, got %s", doc.Status)
	}
}

// TestRecordUpload_MultipleViolations tests that all violated rules are listed
func TestRecordUpload_MultipleViolations(t *testing.T) {
	rules := &ruleSourceStub{rules: []rule.Rule{
		maxAmountRule("rule-amount", 1000),
		{ID: "rule-ccy", Kind: rule.KindCurrencyAllowlist, Currencies: []string{"EUR"}, Enabled: true},
	}}
	service := NewService(passthroughRepo(), rules, nil)

	doc, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "double-bad.csv",
		AmountCents: 5000,
		Currency:    "JPY",
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(doc.Violations) != 2 {
		t.Errorf("Expected 2 violations, got %v", doc.Violations)
	}
}

// TestRecordUpload_Validation tests input validation
func TestRecordUpload_Validation(t *testing.T) {
	service := NewService(&mockDocRepository{}, &ruleSourceStub{}, nil)

	cases := []struct {
		name string
		req  CreateDocumentRequest
		want error
	}{
		{"missing filename", CreateDocumentRequest{AmountCents: 100, Currency: "EUR"}, ErrMissingFilename},
		{"missing currency", CreateDocumentRequest{Filename: "a.csv", AmountCents: 100}, ErrMissingCurrency},
		{"zero amount", CreateDocumentRequest{Filename: "a.csv", Currency: "EUR"}, ErrInvalidAmount},
		{"negative amount", CreateDocumentRequest{Filename: "a.csv", Currency: "EUR", AmountCents: -5}, ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.RecordUpload(context.Background(), "org-1", "user-1", tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

// TestRecordUpload_RuleLookupFailure tests that evaluation failures block the
// upload instead of silently clearing it
func TestRecordUpload_RuleLookupFailure(t *testing.T) {
	rules := &ruleSourceStub{err: errors.New("store unavailable")}
	service := NewService(passthroughRepo(), rules, nil)

	_, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "a.csv",
		AmountCents: 100,
		Currency:    "EUR",
	})

	if err == nil {
		t.Fatal("Expected error when rules cannot be evaluated")
	}
}

// TestRecordUpload_DefaultStorageKey tests the generated storage key
func TestRecordUpload_DefaultStorageKey(t *testing.T) {
	var stored Document
	repo := &mockDocRepository{
		createFunc: func(ctx context.Context, doc Document) (*Document, error) {
			stored = doc
			return &doc, nil
		},
	}
	service := NewService(repo, &ruleSourceStub{}, nil)

	_, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "a.csv",
		AmountCents: 100,
		Currency:    "EUR",
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stored.StorageKey == "" {
		t.Error("Expected a generated storage key")
	}
}

type flagMetricsStub struct {
	flagged    int
	violations int
}

func (m *flagMetricsStub) RecordDocumentFlagged(ctx context.Context, violations int) {
	m.flagged++
	m.violations = violations
}

// TestRecordUpload_RecordsFlaggedMetric tests that only flagged documents are
// counted, with the number of violated rules
func TestRecordUpload_RecordsFlaggedMetric(t *testing.T) {
	rules := &ruleSourceStub{rules: []rule.Rule{
		maxAmountRule("rule-amount", 1000),
		{ID: "rule-ccy", Kind: rule.KindCurrencyAllowlist, Currencies: []string{"EUR"}, Enabled: true},
	}}
	metrics := &flagMetricsStub{}
	service := NewServiceWithMetrics(passthroughRepo(), rules, nil, metrics)

	// Cleared document: no metric
	_, err := service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "ok.csv",
		AmountCents: 500,
		Currency:    "EUR",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metrics.flagged != 0 {
		t.Errorf("Expected no flagged metric for a cleared document, got %d", metrics.flagged)
	}

	// Document violating both rules
	_, err = service.RecordUpload(context.Background(), "org-1", "user-1", CreateDocumentRequest{
		Filename:    "double-bad.csv",
		AmountCents: 5000,
		Currency:    "JPY",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metrics.flagged != 1 {
		t.Errorf("Expected 1 flagged metric, got %d", metrics.flagged)
	}
	if metrics.violations != 2 {
		t.Errorf("Expected 2 violations recorded, got %d", metrics.violations)
	}
}

// TestListDocuments tests the paginated listing passthrough
func TestListDocuments(t *testing.T) {
	repo := &mockDocRepository{
		listFunc: func(ctx context.Context, orgID string, limit, offset int, search string) ([]Document, int, error) {
			return []Document{{ID: "doc-1", OrganizationID: orgID}}, 1, nil
		},
	}
	service := NewService(repo, &ruleSourceStub{}, nil)

	resp, err := service.ListDocuments(context.Background(), "org-1", pagination.Params{Page: 1, Limit: 20})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !resp.Success || len(resp.Documents) != 1 {
		t.Errorf("Expected 1 document, got %+v", resp)
	}
}

// Mock repository for testing
type mockDocRepository struct {
	createFunc func(ctx context.Context, doc Document) (*Document, error)
	listFunc   func(ctx context.Context, orgID string, limit, offset int, search string) ([]Document, int, error)
	getFunc    func(ctx context.Context, orgID, id string) (*Document, error)
}

func (m *mockDocRepository) CreateDocument(ctx context.Context, doc Document) (*Document, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocRepository) ListDocumentsWithPagination(ctx context.Context, orgID string, limit, offset int, search string) ([]Document, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, orgID, limit, offset, search)
	}
	return nil, 0, errors.New("not implemented")
}

func (m *mockDocRepository) GetDocument(ctx context.Context, orgID, id string) (*Document, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, orgID, id)
	}
	return nil, errors.New("not implemented")
}

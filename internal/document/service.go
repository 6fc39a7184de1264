package document

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/pagination"
	"github.com/clearcomply/compliance-service/internal/rule"
	"github.com/google/uuid"
)

// RuleSource provides the enabled compliance rules of an organization.
type RuleSource interface {
	EnabledRules(ctx context.Context, orgID string) ([]rule.Rule, error)
}

// FlagMetrics records documents flagged by rule evaluation.
type FlagMetrics interface {
	RecordDocumentFlagged(ctx context.Context, violations int)
}

type Service struct {
	repo      RepositoryInterface
	rules     RuleSource
	publisher messaging.PublisherInterface
	metrics   FlagMetrics
}

func NewService(repo RepositoryInterface, rules RuleSource, publisher messaging.PublisherInterface) *Service {
	return &Service{
		repo:      repo,
		rules:     rules,
		publisher: publisher,
	}
}

// NewServiceWithMetrics creates a service that records flagged documents
func NewServiceWithMetrics(repo RepositoryInterface, rules RuleSource, publisher messaging.PublisherInterface, metrics FlagMetrics) *Service {
	s := NewService(repo, rules, publisher)
	s.metrics = metrics
	return s
}

// RecordUpload registers an uploaded transaction document, evaluates it
// against the organization's enabled rules and stores the outcome.
func (s *Service) RecordUpload(ctx context.Context, orgID, uploaderID string, req CreateDocumentRequest) (*Document, error) {
	if req.Filename == "" {
		return nil, ErrMissingFilename
	}
	if req.Currency == "" {
		return nil, ErrMissingCurrency
	}
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	storageKey := req.StorageKey
	if storageKey == "" {
		storageKey = fmt.Sprintf("%s/%s/%s", orgID, uuid.New(), req.Filename)
	}

	violations, err := s.evaluate(ctx, orgID, req.AmountCents, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate rules: %w", err)
	}

	status := StatusCleared
	if len(violations) > 0 {
		status = StatusFlagged
	}

	doc, err := s.repo.CreateDocument(ctx, Document{
		OrganizationID: orgID,
		UploaderID:     uploaderID,
		Filename:       req.Filename,
		StorageKey:     storageKey,
		AmountCents:    req.AmountCents,
		Currency:       strings.ToUpper(req.Currency),
		Status:         status,
		Violations:     violations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	if doc.Status == StatusFlagged && s.metrics != nil {
		s.metrics.RecordDocumentFlagged(ctx, len(doc.Violations))
	}

	s.publishEvents(ctx, doc)

	return doc, nil
}

// evaluate applies every enabled rule and collects the ids of those violated.
func (s *Service) evaluate(ctx context.Context, orgID string, amountCents int64, currency string) ([]string, error) {
	rules, err := s.rules.EnabledRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	currency = strings.ToUpper(currency)

	var violations []string
	for _, rl := range rules {
		switch rl.Kind {
		case rule.KindMaxAmount:
			if rl.MaxAmountCents != nil && amountCents > *rl.MaxAmountCents {
				violations = append(violations, rl.ID)
			}
		case rule.KindCurrencyAllowlist:
			allowed := false
			for _, c := range rl.Currencies {
				if strings.ToUpper(c) == currency {
					allowed = true
					break
				}
			}
			if !allowed {
				violations = append(violations, rl.ID)
			}
		}
	}
	return violations, nil
}

func (s *Service) publishEvents(ctx context.Context, doc *Document) {
	if s.publisher == nil {
		return
	}

	uploaded := messaging.DocumentUploadedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventDocumentUploaded),
		Data: messaging.DocumentUploadedData{
			DocumentID:     doc.ID,
			OrganizationID: doc.OrganizationID,
			UploaderID:     doc.UploaderID,
			Filename:       doc.Filename,
			AmountCents:    doc.AmountCents,
			Currency:       doc.Currency,
			Status:         doc.Status,
			UploadedAt:     doc.UploadedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventDocumentUploaded, uploaded); err != nil {
		log.Printf("Warning: failed to publish document.uploaded event: %v", err)
	}

	if doc.Status == StatusFlagged {
		flagged := messaging.DocumentFlaggedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventDocumentFlagged),
			Data: messaging.DocumentFlaggedData{
				DocumentID:     doc.ID,
				OrganizationID: doc.OrganizationID,
				Violations:     doc.Violations,
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventDocumentFlagged, flagged); err != nil {
			log.Printf("Warning: failed to publish document.flagged event: %v", err)
		}
	}
}

// ListDocuments retrieves one page of the organization's documents.
func (s *Service) ListDocuments(ctx context.Context, orgID string, params pagination.Params) (*PaginatedListResponse, error) {
	params.Validate()

	docs, totalCount, err := s.repo.ListDocumentsWithPagination(ctx, orgID, params.Limit, params.CalculateOffset(), params.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	meta := params.CalculateMeta(totalCount)

	return &PaginatedListResponse{
		Success:    true,
		Documents:  docs,
		Pagination: meta,
	}, nil
}

func (s *Service) GetDocument(ctx context.Context, orgID, id string) (*Document, error) {
	return s.repo.GetDocument(ctx, orgID, id)
}

package document

import "context"

// RepositoryInterface defines the contract for document data access
type RepositoryInterface interface {
	CreateDocument(ctx context.Context, doc Document) (*Document, error)
	ListDocumentsWithPagination(ctx context.Context, orgID string, limit, offset int, search string) ([]Document, int, error)
	GetDocument(ctx context.Context, orgID, id string) (*Document, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)

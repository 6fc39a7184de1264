package document

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

func (r *Repository) CreateDocument(ctx context.Context, doc Document) (*Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	query := `
		INSERT INTO comply.transaction_documents
		(id, organization_id, uploader_id, filename, storage_key, amount_cents, currency, status, violations, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, organization_id, uploader_id, filename, storage_key, amount_cents, currency, status, violations, uploaded_at
	`

	var created Document
	err := r.db.QueryRowContext(ctx, query,
		doc.ID,
		doc.OrganizationID,
		doc.UploaderID,
		doc.Filename,
		doc.StorageKey,
		doc.AmountCents,
		doc.Currency,
		doc.Status,
		pq.Array(doc.Violations),
		doc.UploadedAt,
	).Scan(
		&created.ID,
		&created.OrganizationID,
		&created.UploaderID,
		&created.Filename,
		&created.StorageKey,
		&created.AmountCents,
		&created.Currency,
		&created.Status,
		pq.Array(&created.Violations),
		&created.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return &created, nil
}

// ListDocumentsWithPagination returns one page of an organization's documents,
// newest first, optionally filtered by filename search.
func (r *Repository) ListDocumentsWithPagination(ctx context.Context, orgID string, limit, offset int, search string) ([]Document, int, error) {
	searchClause := ""
	countArgs := []interface{}{orgID}
	args := []interface{}{orgID, limit, offset}

	if search != "" {
		countArgs = append(countArgs, "%"+search+"%")
		args = append(args, "%"+search+"%")
	}

	var totalCount int
	countSearch := ""
	if search != "" {
		countSearch = " AND filename ILIKE $2"
		searchClause = " AND filename ILIKE $4"
	}
	countQuery := `SELECT COUNT(*) FROM comply.transaction_documents WHERE organization_id = $1` + countSearch
	err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, organization_id, uploader_id, filename, storage_key, amount_cents, currency, status, violations, uploaded_at
		FROM comply.transaction_documents
		WHERE organization_id = $1%s
		ORDER BY uploaded_at DESC
		LIMIT $2 OFFSET $3
	`, searchClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID,
			&doc.OrganizationID,
			&doc.UploaderID,
			&doc.Filename,
			&doc.StorageKey,
			&doc.AmountCents,
			&doc.Currency,
			&doc.Status,
			pq.Array(&doc.Violations),
			&doc.UploadedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, totalCount, nil
}

func (r *Repository) GetDocument(ctx context.Context, orgID, id string) (*Document, error) {
	query := `
		SELECT id, organization_id, uploader_id, filename, storage_key, amount_cents, currency, status, violations, uploaded_at
		FROM comply.transaction_documents
		WHERE organization_id = $1 AND id = $2
	`

	var doc Document
	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&doc.ID,
		&doc.OrganizationID,
		&doc.UploaderID,
		&doc.Filename,
		&doc.StorageKey,
		&doc.AmountCents,
		&doc.Currency,
		&doc.Status,
		pq.Array(&doc.Violations),
		&doc.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

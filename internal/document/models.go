package document

import (
	"time"

	"github.com/clearcomply/compliance-service/internal/pagination"
)

// Document statuses after rule evaluation.
const (
	StatusCleared = "cleared"
	StatusFlagged = "flagged"
)

// Document is the metadata row for an uploaded transaction document. The file
// bytes themselves live in hosted object storage under StorageKey.
type Document struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UploaderID     string    `json:"uploader_id"`
	Filename       string    `json:"filename"`
	StorageKey     string    `json:"storage_key"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	Violations     []string  `json:"violations,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

type CreateDocumentRequest struct {
	Filename    string `json:"filename"`
	StorageKey  string `json:"storage_key"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaginatedListResponse is one page of an organization's documents.
type PaginatedListResponse struct {
	Success    bool            `json:"success"`
	Documents  []Document      `json:"documents"`
	Pagination pagination.Meta `json:"pagination"`
}

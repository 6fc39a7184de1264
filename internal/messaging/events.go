package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	// Emitted by the auth provider when an account is created; consumed here
	// to trigger onboarding.
	EventUserSignedUp = "user.signed_up"

	// Organization events
	EventOrganizationProvisioned = "organization.provisioned"
	EventOrganizationDeleted     = "organization.deleted"
	EventMembershipCreated       = "membership.created"

	// Transaction document events
	EventDocumentUploaded = "document.uploaded"
	EventDocumentFlagged  = "document.flagged"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a BaseEvent with a fresh id and timestamp.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.New().String(),
		Timestamp:   time.Now(),
		ServiceName: "compliance-service",
	}
}

// UserSignedUpEvent is the payload the auth provider publishes on signup.
type UserSignedUpEvent struct {
	BaseEvent
	Data UserSignedUpData `json:"data"`
}

type UserSignedUpData struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// OrganizationProvisionedEvent is published after an organization and its
// initial admin membership are committed.
type OrganizationProvisionedEvent struct {
	BaseEvent
	Data OrganizationProvisionedData `json:"data"`
}

type OrganizationProvisionedData struct {
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	UserID           string    `json:"user_id"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
}

// OrganizationDeletedEvent is published when the cleanup job purges an
// organization.
type OrganizationDeletedEvent struct {
	BaseEvent
	Data OrganizationDeletedData `json:"data"`
}

type OrganizationDeletedData struct {
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	DeletedAt        time.Time `json:"deleted_at"`
}

// MembershipCreatedEvent is published when a user joins an organization.
type MembershipCreatedEvent struct {
	BaseEvent
	Data MembershipCreatedData `json:"data"`
}

type MembershipCreatedData struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentUploadedEvent is published when a transaction document is recorded.
type DocumentUploadedEvent struct {
	BaseEvent
	Data DocumentUploadedData `json:"data"`
}

type DocumentUploadedData struct {
	DocumentID     string    `json:"document_id"`
	OrganizationID string    `json:"organization_id"`
	UploaderID     string    `json:"uploader_id"`
	Filename       string    `json:"filename"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// DocumentFlaggedEvent is published when rule evaluation flags a document.
type DocumentFlaggedEvent struct {
	BaseEvent
	Data DocumentFlaggedData `json:"data"`
}

type DocumentFlaggedData struct {
	DocumentID     string   `json:"document_id"`
	OrganizationID string   `json:"organization_id"`
	Violations     []string `json:"violations"`
}

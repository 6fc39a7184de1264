package document

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/organization"
	"github.com/clearcomply/compliance-service/internal/pagination"
	"github.com/clearcomply/compliance-service/internal/session"
	"github.com/gorilla/mux"
)

// ServiceInterface defines the contract for document business logic
type ServiceInterface interface {
	RecordUpload(ctx context.Context, orgID, uploaderID string, req CreateDocumentRequest) (*Document, error)
	ListDocuments(ctx context.Context, orgID string, params pagination.Params) (*PaginatedListResponse, error)
	GetDocument(ctx context.Context, orgID, id string) (*Document, error)
}

var _ ServiceInterface = (*Service)(nil)

// OrgResolver resolves the caller's active organization. Implemented by the
// session selector.
type OrgResolver interface {
	Current(ctx context.Context, r *http.Request, userID string) (string, error)
}

type Handler struct {
	service  ServiceInterface
	resolver OrgResolver
}

func NewHandler(service ServiceInterface, resolver OrgResolver) *Handler {
	return &Handler{
		service:  service,
		resolver: resolver,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type DocumentResponse struct {
	Success  bool      `json:"success"`
	Document *Document `json:"document,omitempty"`
}

// activeOrg resolves the caller and their active organization. Documents are
// always scoped to the active selection; membership is re-validated by the
// selector on every read.
func (h *Handler) activeOrg(w http.ResponseWriter, r *http.Request) (string, *auth.Principal, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return "", nil, false
	}

	orgID, err := h.resolver.Current(r.Context(), r, principal.UserID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSelection):
			respondError(w, http.StatusBadRequest, "no_selection", "No active organization selected")
		case errors.Is(err, session.ErrInvalidSelection), errors.Is(err, organization.ErrNotAMember):
			respondError(w, http.StatusForbidden, "invalid_selection", "Active organization selection is no longer valid")
		default:
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return "", nil, false
	}

	return orgID, principal, true
}

// RecordUpload handles POST /documents.
func (h *Handler) RecordUpload(w http.ResponseWriter, r *http.Request) {
	orgID, principal, ok := h.activeOrg(w, r)
	if !ok {
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	doc, err := h.service.RecordUpload(r.Context(), orgID, principal.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFilename), errors.Is(err, ErrMissingCurrency), errors.Is(err, ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(DocumentResponse{Success: true, Document: doc})
}

// ListDocuments handles GET /documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeOrg(w, r)
	if !ok {
		return
	}

	params := pagination.ParseParams(r)

	response, err := h.service.ListDocuments(r.Context(), orgID, params)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetDocument handles GET /documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeOrg(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	doc, err := h.service.GetDocument(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DocumentResponse{Success: true, Document: doc})
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

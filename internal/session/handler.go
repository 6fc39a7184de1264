package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/organization"
)

type Handler struct {
	selector *Selector
}

func NewHandler(selector *Selector) *Handler {
	return &Handler{selector: selector}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SwitchRequest struct {
	OrganizationID string `json:"organization_id"`
}

type SwitchResponse struct {
	Success        bool   `json:"success"`
	OrganizationID string `json:"organization_id"`
}

type CurrentResponse struct {
	Success        bool   `json:"success"`
	OrganizationID string `json:"organization_id"`
}

// SwitchOrganization handles PUT /session/organization.
func (h *Handler) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.OrganizationID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Organization ID is required")
		return
	}

	err := h.selector.Switch(r.Context(), w, principal.UserID, req.OrganizationID)
	if err != nil {
		switch {
		case errors.Is(err, organization.ErrNotAMember):
			respondError(w, http.StatusForbidden, "not_a_member", "Not a member of that organization")
		case errors.Is(err, organization.ErrStoreUnavailable):
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "switch_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SwitchResponse{
		Success:        true,
		OrganizationID: req.OrganizationID,
	})
}

// CurrentOrganization handles GET /session/organization.
func (h *Handler) CurrentOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	orgID, err := h.selector.Current(r.Context(), r, principal.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSelection):
			respondError(w, http.StatusNotFound, "no_selection", "No active organization selected")
		case errors.Is(err, ErrInvalidSelection), errors.Is(err, organization.ErrNotAMember):
			respondError(w, http.StatusForbidden, "invalid_selection", "Active organization selection is no longer valid")
		case errors.Is(err, organization.ErrStoreUnavailable):
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CurrentResponse{
		Success:        true,
		OrganizationID: orgID,
	})
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

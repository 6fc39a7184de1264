package organization

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/pagination"
	"github.com/gorilla/mux"
)

// ActiveOrgSetter persists the caller's active-organization selection.
// Implemented by the session cookie store; declared here so the handler does
// not depend on the session package.
type ActiveOrgSetter interface {
	Set(w http.ResponseWriter, userID, orgID string) error
}

type Handler struct {
	service   ServiceInterface
	activeOrg ActiveOrgSetter
}

func NewHandler(service ServiceInterface, activeOrg ActiveOrgSetter) *Handler {
	return &Handler{
		service:   service,
		activeOrg: activeOrg,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CreateRequest struct {
	Name string `json:"name"`
}

type CreateResponse struct {
	Success      bool          `json:"success"`
	Organization *Organization `json:"organization,omitempty"`
}

type MembersResponse struct {
	Success bool     `json:"success"`
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}

type GetResponse struct {
	Success      bool          `json:"success"`
	Organization *Organization `json:"organization"`
}

// CreateOrganization handles POST /organizations: provision an organization
// for the current user and make it their active selection.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Organization name is required")
		return
	}

	org, err := h.service.Provision(r.Context(), principal.UserID, req.Name, RoleBrokerAdmin)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyMember):
			respondError(w, http.StatusConflict, "already_member", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "provisioning_failed", err.Error())
		}
		return
	}

	if h.activeOrg != nil {
		if err := h.activeOrg.Set(w, principal.UserID, org.ID); err != nil {
			// The org exists; the user can still switch to it explicitly.
			respondError(w, http.StatusInternalServerError, "selection_failed",
				"Organization created but could not be made active: "+err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateResponse{
		Success:      true,
		Organization: org,
	})
}

// ListMyOrganizations handles GET /organizations: one page of the current
// user's memberships.
func (h *Handler) ListMyOrganizations(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	params := pagination.ParseParams(r)

	response, err := h.service.MembershipsForUserWithPagination(r.Context(), principal.UserID, params)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetOrganization handles GET /organizations/{id}.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Organization ID is required")
		return
	}

	org, err := h.service.GetOrganization(r.Context(), principal.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAMember):
			respondError(w, http.StatusForbidden, "not_a_member", "Not a member of that organization")
		case errors.Is(err, ErrOrgNotFound):
			respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetResponse{
		Success:      true,
		Organization: org,
	})
}

// ListMembers handles GET /organizations/{id}/members (broker_admin only).
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Organization ID is required")
		return
	}

	members, err := h.service.MembersOfOrganization(r.Context(), principal.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAMember):
			respondError(w, http.StatusForbidden, "not_a_member", "You must be a broker_admin of this organization")
		default:
			respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MembersResponse{
		Success: true,
		Members: members,
		Total:   len(members),
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

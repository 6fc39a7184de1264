package rule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/organization"
	"github.com/clearcomply/compliance-service/internal/session"
	"github.com/gorilla/mux"
)

// ServiceInterface defines the contract for rule business logic
type ServiceInterface interface {
	CreateRule(ctx context.Context, orgID string, req CreateRuleRequest) (*Rule, error)
	ListRules(ctx context.Context, orgID string) ([]Rule, error)
	EnabledRules(ctx context.Context, orgID string) ([]Rule, error)
	GetRule(ctx context.Context, orgID, id string) (*Rule, error)
	UpdateRule(ctx context.Context, orgID, id string, req UpdateRuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, orgID, id string) error
}

var _ ServiceInterface = (*Service)(nil)

// OrgResolver resolves the caller's active organization. Implemented by the
// session selector.
type OrgResolver interface {
	Current(ctx context.Context, r *http.Request, userID string) (string, error)
}

type Handler struct {
	service  ServiceInterface
	orgs     organization.ServiceInterface
	resolver OrgResolver
}

func NewHandler(service ServiceInterface, orgs organization.ServiceInterface, resolver OrgResolver) *Handler {
	return &Handler{
		service:  service,
		orgs:     orgs,
		resolver: resolver,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type RuleResponse struct {
	Success bool  `json:"success"`
	Rule    *Rule `json:"rule,omitempty"`
}

type ListResponse struct {
	Success bool   `json:"success"`
	Rules   []Rule `json:"rules"`
	Total   int    `json:"total"`
}

// activeAdminOrg resolves the caller's active organization and verifies a
// broker_admin membership in it. Rule management is admin-only.
func (h *Handler) activeAdminOrg(w http.ResponseWriter, r *http.Request) (string, *auth.Principal, bool) {
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

	memberships, err := h.orgs.MembershipsForUser(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return "", nil, false
	}
	for _, m := range memberships {
		if m.OrganizationID == orgID && m.Role == organization.RoleBrokerAdmin {
			return orgID, principal, true
		}
	}

	respondError(w, http.StatusForbidden, "forbidden", "Rule management requires a broker_admin membership")
	return "", nil, false
}

// CreateRule handles POST /rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeAdminOrg(w, r)
	if !ok {
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	rule, err := h.service.CreateRule(r.Context(), orgID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrMissingThreshold), errors.Is(err, ErrMissingCurrency):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "creation_failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(RuleResponse{Success: true, Rule: rule})
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeAdminOrg(w, r)
	if !ok {
		return
	}

	rules, err := h.service.ListRules(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Success: true, Rules: rules, Total: len(rules)})
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeAdminOrg(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	rule, err := h.service.GetRule(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RuleResponse{Success: true, Rule: rule})
}

// UpdateRule handles PUT /rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeAdminOrg(w, r)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	rule, err := h.service.UpdateRule(r.Context(), orgID, id, req)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RuleResponse{Success: true, Rule: rule})
}

// DeleteRule handles DELETE /rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	orgID, _, ok := h.activeAdminOrg(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteRule(r.Context(), orgID, id); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			respondError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "deletion_failed", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

package onboarding

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/clearcomply/compliance-service/internal/auth"
)

// WebhookSecretHeader carries the shared secret the auth provider sends with
// every signup hook call.
const WebhookSecretHeader = "X-Webhook-Secret"

// ActiveOrgSetter persists the active-organization selection for a user.
// Implemented by the session cookie store; only the self-service entry point
// can use it, since the webhook has no client response to attach a cookie to.
type ActiveOrgSetter interface {
	Set(w http.ResponseWriter, userID, orgID string) error
}

type Handler struct {
	service       *Service
	activeOrg     ActiveOrgSetter
	webhookSecret []byte
}

func NewHandler(service *Service, activeOrg ActiveOrgSetter, webhookSecret string) *Handler {
	return &Handler{
		service:       service,
		activeOrg:     activeOrg,
		webhookSecret: []byte(webhookSecret),
	}
}

type webhookRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// SignupWebhook handles POST /hooks/signup, called by the auth provider after
// account creation. The caller must present the shared webhook secret; the
// endpoint writes to the store on behalf of a caller-supplied user id and
// must not be reachable anonymously. Authenticated calls always answer 200:
// a failed onboarding must never fail the signup that triggered it.
func (h *Handler) SignupWebhook(w http.ResponseWriter, r *http.Request) {
	presented := []byte(r.Header.Get(WebhookSecretHeader))
	if len(h.webhookSecret) == 0 || subtle.ConstantTimeCompare(presented, h.webhookSecret) != 1 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(Result{Success: false, Error: "invalid webhook secret"})
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, Result{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	result := h.service.OnboardAfterSignup(r.Context(), req.UserID, Profile{
		Email:    req.Email,
		FullName: req.FullName,
	})
	writeResult(w, result)
}

// Onboard handles POST /onboarding for the authenticated user. Same trigger
// as the webhook, but since the caller is the user's own browser session the
// new organization also becomes the active selection.
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(Result{Success: false, Error: "unauthenticated"})
		return
	}

	result := h.service.OnboardAfterSignup(r.Context(), principal.UserID, Profile{
		Email:    principal.Email,
		FullName: principal.FullName,
	})

	if result.Success && result.OrganizationID != "" && h.activeOrg != nil {
		if err := h.activeOrg.Set(w, principal.UserID, result.OrganizationID); err != nil {
			// Selection is recoverable via an explicit switch; don't fail onboarding.
			result.Error = "organization created but selection not persisted: " + err.Error()
		}
	}

	writeResult(w, result)
}

func writeResult(w http.ResponseWriter, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

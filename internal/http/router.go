package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/clearcomply/compliance-service/internal/auth"
	"github.com/clearcomply/compliance-service/internal/document"
	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/onboarding"
	"github.com/clearcomply/compliance-service/internal/organization"
	"github.com/clearcomply/compliance-service/internal/rule"
	"github.com/clearcomply/compliance-service/internal/session"
	"github.com/clearcomply/compliance-service/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// Dependencies holds everything the router needs to wire the handlers.
type Dependencies struct {
	DB            *sql.DB
	Verifier      *auth.Verifier
	Perms         auth.Permissions
	Publisher     messaging.PublisherInterface
	Store         *session.Store
	Metrics       *telemetry.Metrics
	WebhookSecret string
}

// SetupRouter initializes all routes for the application. It returns the
// router and the onboarding service so the signup consumer can share it.
func SetupRouter(deps Dependencies) (*mux.Router, *onboarding.Service) {
	// Organization components
	orgRepo := organization.NewRepository(deps.DB)
	orgService := organization.NewService(orgRepo, deps.Publisher)
	if deps.Metrics != nil {
		orgService = organization.NewServiceWithMetrics(orgRepo, deps.Publisher, deps.Metrics)
	}

	// Active organization selection
	memberCache := organization.NewMembershipCache(orgService, organization.DefaultMembershipTTL)
	selector := session.NewSelector(orgService, memberCache, deps.Store)
	if deps.Metrics != nil {
		selector = session.NewSelectorWithMetrics(orgService, memberCache, deps.Store, deps.Metrics)
	}
	sessionHandler := session.NewHandler(selector)

	orgHandler := organization.NewHandler(orgService, deps.Store)

	// Onboarding components
	onboardingService := onboarding.NewService(orgService)
	if deps.Metrics != nil {
		onboardingService = onboarding.NewServiceWithMetrics(orgService, deps.Metrics)
	}
	onboardingHandler := onboarding.NewHandler(onboardingService, deps.Store, deps.WebhookSecret)

	// Compliance rule components
	ruleRepo := rule.NewRepository(deps.DB)
	ruleService := rule.NewService(ruleRepo)
	ruleHandler := rule.NewHandler(ruleService, orgService, selector)

	// Transaction document components
	docRepo := document.NewRepository(deps.DB)
	docService := document.NewService(docRepo, ruleService, deps.Publisher)
	if deps.Metrics != nil {
		docService = document.NewServiceWithMetrics(docRepo, ruleService, deps.Publisher, deps.Metrics)
	}
	docHandler := document.NewHandler(docService, selector)

	authMW := auth.Middleware(deps.Verifier)
	requirePerm := func(per string) func(http.Handler) http.Handler {
		return auth.RequirePermission(per, deps.Perms)
	}
	if deps.Metrics != nil {
		authMW = auth.MiddlewareWithMetrics(deps.Verifier, deps.Metrics)
		requirePerm = func(per string) func(http.Handler) http.Handler {
			return auth.RequirePermissionWithMetrics(per, deps.Perms, deps.Metrics)
		}
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("compliance-service"))
	if deps.Metrics != nil {
		r.Use(httpMetricsMiddleware(deps.Metrics))
	}

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"compliance-service"}`))
	}).Methods("GET")

	// Signup webhook from the identity provider (server-to-server, guarded by
	// the shared webhook secret instead of a bearer token)
	r.HandleFunc("/hooks/signup", onboardingHandler.SignupWebhook).Methods("POST")

	// Organization routes
	r.Handle("/organizations",
		authMW(
			requirePerm("organization:create")(
				http.HandlerFunc(orgHandler.CreateOrganization),
			),
		),
	).Methods("POST")

	r.Handle("/organizations",
		authMW(
			requirePerm("organization:view")(
				http.HandlerFunc(orgHandler.ListMyOrganizations),
			),
		),
	).Methods("GET")

	r.Handle("/organizations/{id}",
		authMW(
			requirePerm("organization:view")(
				http.HandlerFunc(orgHandler.GetOrganization),
			),
		),
	).Methods("GET")

	r.Handle("/organizations/{id}/members",
		authMW(
			requirePerm("organization:view")(
				http.HandlerFunc(orgHandler.ListMembers),
			),
		),
	).Methods("GET")

	// Active organization selection
	r.Handle("/session/organization",
		authMW(
			requirePerm("session:manage")(
				http.HandlerFunc(sessionHandler.SwitchOrganization),
			),
		),
	).Methods("PUT")

	r.Handle("/session/organization",
		authMW(
			requirePerm("session:manage")(
				http.HandlerFunc(sessionHandler.CurrentOrganization),
			),
		),
	).Methods("GET")

	// Authenticated onboarding (idempotent, used by first-login flows)
	r.Handle("/onboarding",
		authMW(
			requirePerm("organization:create")(
				http.HandlerFunc(onboardingHandler.Onboard),
			),
		),
	).Methods("POST")

	// Transaction document routes (scoped to the active organization)
	r.Handle("/documents",
		authMW(
			requirePerm("document:create")(
				http.HandlerFunc(docHandler.RecordUpload),
			),
		),
	).Methods("POST")

	r.Handle("/documents",
		authMW(
			requirePerm("document:view")(
				http.HandlerFunc(docHandler.ListDocuments),
			),
		),
	).Methods("GET")

	r.Handle("/documents/{id}",
		authMW(
			requirePerm("document:view")(
				http.HandlerFunc(docHandler.GetDocument),
			),
		),
	).Methods("GET")

	// Compliance rule routes (broker_admin only for mutations)
	r.Handle("/rules",
		authMW(
			requirePerm("rule:manage")(
				http.HandlerFunc(ruleHandler.CreateRule),
			),
		),
	).Methods("POST")

	r.Handle("/rules",
		authMW(
			requirePerm("rule:view")(
				http.HandlerFunc(ruleHandler.ListRules),
			),
		),
	).Methods("GET")

	r.Handle("/rules/{id}",
		authMW(
			requirePerm("rule:view")(
				http.HandlerFunc(ruleHandler.GetRule),
			),
		),
	).Methods("GET")

	r.Handle("/rules/{id}",
		authMW(
			requirePerm("rule:manage")(
				http.HandlerFunc(ruleHandler.UpdateRule),
			),
		),
	).Methods("PUT")

	r.Handle("/rules/{id}",
		authMW(
			requirePerm("rule:manage")(
				http.HandlerFunc(ruleHandler.DeleteRule),
			),
		),
	).Methods("DELETE")

	return r, onboardingService
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func httpMetricsMiddleware(metrics *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, float64(time.Since(start).Milliseconds()))
		})
	}
}

package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	ProvisioningTotal     metric.Int64Counter
	OnboardingTotal       metric.Int64Counter
	OrgSwitchTotal        metric.Int64Counter
	DocumentsFlaggedTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/clearcomply/compliance-service")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	provisioningTotal, err := meter.Int64Counter(
		"organization_provisioning_total",
		metric.WithDescription("Total number of organization provisioning attempts"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	onboardingTotal, err := meter.Int64Counter(
		"onboarding_total",
		metric.WithDescription("Total number of signup onboarding runs"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	orgSwitchTotal, err := meter.Int64Counter(
		"organization_switch_total",
		metric.WithDescription("Total number of active organization switches"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	documentsFlaggedTotal, err := meter.Int64Counter(
		"documents_flagged_total",
		metric.WithDescription("Total number of transaction documents flagged by rules"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	permissionCheckDuration, err := meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Println("✓ Custom metrics initialized")

	return &Metrics{
		HTTPRequestsTotal:       httpRequestsTotal,
		HTTPDurationMs:          httpDurationMs,
		ProvisioningTotal:       provisioningTotal,
		OnboardingTotal:         onboardingTotal,
		OrgSwitchTotal:          orgSwitchTotal,
		DocumentsFlaggedTotal:   documentsFlaggedTotal,
		AuthFailuresTotal:       authFailuresTotal,
		PermissionCheckDuration: permissionCheckDuration,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordProvisioning records an organization provisioning attempt
func (m *Metrics) RecordProvisioning(ctx context.Context, outcome string) {
	m.ProvisioningTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordOnboarding records a signup onboarding run
func (m *Metrics) RecordOnboarding(ctx context.Context, outcome string) {
	m.OnboardingTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordOrgSwitch records an active organization switch attempt
func (m *Metrics) RecordOrgSwitch(ctx context.Context, outcome string) {
	m.OrgSwitchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordDocumentFlagged records a rule-flagged transaction document
func (m *Metrics) RecordDocumentFlagged(ctx context.Context, violations int) {
	m.DocumentsFlaggedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("violations", violations),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}

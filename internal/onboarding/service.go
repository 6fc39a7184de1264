package onboarding

import (
	"context"
	"log"
	"strings"

	"github.com/clearcomply/compliance-service/internal/organization"
)

// DefaultOrganizationName is the last-resort name when the profile carries
// neither a full name nor an email.
const DefaultOrganizationName = "My Organization"

// Profile is the slice of auth-provider user metadata onboarding needs.
type Profile struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Result is the structured outcome of an onboarding attempt. Onboarding is
// invoked as a side effect of signup and must never block it, so failures are
// reported here instead of propagating.
type Result struct {
	Success        bool   `json:"success"`
	OrganizationID string `json:"organization_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// OnboardingMetrics records the outcome of onboarding runs.
type OnboardingMetrics interface {
	RecordOnboarding(ctx context.Context, outcome string)
}

type Service struct {
	orgs    organization.ServiceInterface
	metrics OnboardingMetrics
}

func NewService(orgs organization.ServiceInterface) *Service {
	return &Service{orgs: orgs}
}

// NewServiceWithMetrics creates a service that records onboarding outcomes
func NewServiceWithMetrics(orgs organization.ServiceInterface, metrics OnboardingMetrics) *Service {
	return &Service{orgs: orgs, metrics: metrics}
}

func (s *Service) recordOnboarding(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOnboarding(ctx, outcome)
	}
}

// OnboardAfterSignup ensures a user who just signed up has exactly one
// organization. Users with any existing membership are left untouched.
func (s *Service) OnboardAfterSignup(ctx context.Context, userID string, profile Profile) Result {
	if userID == "" {
		log.Printf("Onboarding skipped: empty user id")
		s.recordOnboarding(ctx, "failure")
		return Result{Success: false, Error: "user id is required"}
	}

	memberships, err := s.orgs.MembershipsForUser(ctx, userID)
	if err != nil {
		log.Printf("Onboarding failed for user %s: membership lookup: %v", userID, err)
		s.recordOnboarding(ctx, "failure")
		return Result{Success: false, Error: err.Error()}
	}
	if len(memberships) > 0 {
		// Already provisioned; onboarding is idempotent.
		s.recordOnboarding(ctx, "already_onboarded")
		return Result{Success: true}
	}

	name := defaultName(profile)

	org, err := s.orgs.Provision(ctx, userID, name, organization.RoleBrokerAdmin)
	if err != nil {
		log.Printf("Onboarding failed for user %s: provisioning: %v", userID, err)
		s.recordOnboarding(ctx, "failure")
		return Result{Success: false, Error: err.Error()}
	}

	s.recordOnboarding(ctx, "provisioned")
	log.Printf("Onboarded user %s into new organization %s (%q)", userID, org.ID, org.Name)
	return Result{Success: true, OrganizationID: org.ID}
}

// defaultName derives the initial organization name: full name, then the
// local part of the email, then a fixed default.
func defaultName(profile Profile) string {
	if name := strings.TrimSpace(profile.FullName); name != "" {
		return name
	}
	if email := strings.TrimSpace(profile.Email); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			return email[:at]
		}
		return email
	}
	return DefaultOrganizationName
}

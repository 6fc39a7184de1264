package organization

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clearcomply/compliance-service/internal/messaging"
)

// OrphanGracePeriod is how old a zero-membership organization must be before
// the cleanup job purges it. Provisioning is transactional so the API cannot
// create orphans, but operator-inserted or pre-migration rows can exist.
const OrphanGracePeriod = 24 * time.Hour

// CleanupService permanently deletes organizations that never received a
// membership.
type CleanupService struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
}

func NewCleanupService(repo RepositoryInterface, publisher messaging.PublisherInterface) *CleanupService {
	return &CleanupService{
		repo:      repo,
		publisher: publisher,
	}
}

// CountOrphanedOrganizations reports how many organizations are currently
// eligible for purging.
func (s *CleanupService) CountOrphanedOrganizations(ctx context.Context) (int, error) {
	orgs, err := s.repo.ListOrphanedOrganizations(ctx, time.Now().Add(-OrphanGracePeriod))
	if err != nil {
		return 0, err
	}
	return len(orgs), nil
}

// PurgeOrphanedOrganizations deletes every eligible organization and returns
// the number purged. A failure on one organization is logged and the rest are
// still attempted.
func (s *CleanupService) PurgeOrphanedOrganizations(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-OrphanGracePeriod)
	log.Printf("Starting purge of membership-less organizations created before %s", cutoff.Format(time.RFC3339))

	orgs, err := s.repo.ListOrphanedOrganizations(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list orphaned organizations: %w", err)
	}

	purged := 0
	for _, org := range orgs {
		if err := s.repo.DeleteOrganization(ctx, org.ID); err != nil {
			log.Printf("Warning: failed to purge orphaned organization %s: %v", org.ID, err)
			continue
		}
		purged++
		log.Printf("Purged orphaned organization %s (%q, created %s)", org.ID, org.Name, org.CreatedAt.Format(time.RFC3339))

		if s.publisher != nil {
			event := messaging.OrganizationDeletedEvent{
				BaseEvent: messaging.NewBaseEvent(messaging.EventOrganizationDeleted),
				Data: messaging.OrganizationDeletedData{
					OrganizationID:   org.ID,
					OrganizationName: org.Name,
					DeletedAt:        time.Now(),
				},
			}
			if err := s.publisher.Publish(ctx, messaging.EventOrganizationDeleted, event); err != nil {
				log.Printf("Warning: failed to publish organization.deleted event: %v", err)
			}
		}
	}

	log.Printf("Purge complete: %d of %d orphaned organizations removed", purged, len(orgs))
	return purged, nil
}

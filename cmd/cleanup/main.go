package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/clearcomply/compliance-service/internal/db"
	"github.com/clearcomply/compliance-service/internal/messaging"
	"github.com/clearcomply/compliance-service/internal/organization"
)

// Purges organizations that never received a membership. Run as a cron job.
func main() {
	dryRun := flag.Bool("dry-run", false, "report eligible organizations without deleting them")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	var publisher messaging.PublisherInterface
	if pub, err := messaging.NewPublisher(); err != nil {
		log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	repo := organization.NewRepository(database)
	cleanup := organization.NewCleanupService(repo, publisher)

	if *dryRun {
		count, err := cleanup.CountOrphanedOrganizations(ctx)
		if err != nil {
			log.Fatalf("dry run failed: %v", err)
		}
		log.Printf("Dry run: %d organization(s) eligible for purging", count)
		return
	}

	purged, err := cleanup.PurgeOrphanedOrganizations(ctx)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}
	log.Printf("Done: purged %d organization(s)", purged)
}

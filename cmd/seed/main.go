// Command seed populates the database with demo users and events.
package main

import (
	"flag"
	"log"

	"github.com/sagar-1m/Event-Engage/internal/config"
	"github.com/sagar-1m/Event-Engage/internal/database"
	"github.com/sagar-1m/Event-Engage/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numEvents := flag.Int("events", 60, "Number of events to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumEvents:   *numEvents,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

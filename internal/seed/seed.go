// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumEvents   int
	ShouldClean bool
}

var categories = []models.EventCategory{
	models.EventCategoryConference,
	models.EventCategorySeminar,
	models.EventCategoryWorkshop,
	models.EventCategorySocial,
	models.EventCategoryOther,
}

var eventTitleTemplates = []string{
	"%s Meetup",
	"Intro to %s",
	"%s Deep Dive",
	"The Future of %s",
	"%s for Beginners",
	"Advanced %s Workshop",
	"%s Night",
}

// Seed populates the database with test data.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d events...", opts.NumUsers, opts.NumEvents)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("Created %d test users", len(users))

	events, err := createEvents(db, users, opts.NumEvents)
	if err != nil {
		return fmt.Errorf("failed to create events: %w", err)
	}
	log.Printf("Created %d events", len(events))

	joined, err := createMemberships(db, users, events)
	if err != nil {
		return fmt.Errorf("failed to create memberships: %w", err)
	}
	log.Printf("Created %d event memberships", joined)

	log.Println("Seeding complete. All test users have the password: Password123")
	return nil
}

func clearData(db *gorm.DB) error {
	if err := db.Exec("DELETE FROM event_attendees").Error; err != nil {
		return err
	}
	if err := db.Unscoped().Where("1 = 1").Delete(&models.Event{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("1 = 1").Delete(&models.User{}).Error
}

// BuildUser constructs an unsaved sample user. Overrides may adjust the
// generated user before it is returned.
func BuildUser(overrides ...func(*models.User)) *models.User {
	name := gofakeit.Name()
	user := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s%d@example.com", strings.ToLower(strings.ReplaceAll(name, " ", ".")), gofakeit.Number(100, 999)),
		Role:  models.UserRoleMember,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildEvent constructs an unsaved sample event for the given organizer.
func BuildEvent(organizer *models.User, overrides ...func(*models.Event)) *models.Event {
	template := eventTitleTemplates[rand.Intn(len(eventTitleTemplates))]
	status := models.EventStatusPublished
	if rand.Intn(5) == 0 {
		status = models.EventStatusDraft
	}

	event := &models.Event{
		Title:       fmt.Sprintf(template, gofakeit.BuzzWord()),
		Description: gofakeit.Paragraph(1, 3, 8, " "),
		Date:        time.Now().Add(time.Duration(1+rand.Intn(90)) * 24 * time.Hour),
		Time:        fmt.Sprintf("%02d:%02d", 9+rand.Intn(12), 15*rand.Intn(4)),
		Location:    gofakeit.City(),
		Category:    categories[rand.Intn(len(categories))],
		Capacity:    5 + rand.Intn(96),
		Status:      status,
		OrganizerID: organizer.ID,
	}
	for _, override := range overrides {
		override(event)
	}
	return event
}

func createUsers(db *gorm.DB, count int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user := BuildUser(func(u *models.User) {
			u.Password = string(hashed)
		})
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createEvents(db *gorm.DB, users []*models.User, count int) ([]*models.Event, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to organize events")
	}

	events := make([]*models.Event, 0, count)
	for i := 0; i < count; i++ {
		organizer := users[rand.Intn(len(users))]
		event := BuildEvent(organizer)
		if err := db.Create(event).Error; err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// createMemberships joins random users to published events, staying below
// each event's capacity and never joining the organizer.
func createMemberships(db *gorm.DB, users []*models.User, events []*models.Event) (int, error) {
	total := 0
	for _, event := range events {
		if event.Status != models.EventStatusPublished {
			continue
		}

		max := rand.Intn(len(users) + 1)
		if max > event.Capacity {
			max = event.Capacity
		}

		perm := rand.Perm(len(users))
		joined := 0
		for _, idx := range perm {
			if joined >= max {
				break
			}
			user := users[idx]
			if user.ID == event.OrganizerID {
				continue
			}
			attendee := &models.EventAttendee{EventID: event.ID, UserID: user.ID}
			if err := db.Create(attendee).Error; err != nil {
				return total, err
			}
			joined++
			total++
		}
	}
	return total, nil
}

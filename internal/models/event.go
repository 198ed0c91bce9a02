package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// EventStatus defines the publication state of an event.
type EventStatus string

const (
	// EventStatusDraft is the default state; drafts cannot be joined.
	EventStatusDraft EventStatus = "draft"
	// EventStatusPublished marks an event open for attendees.
	EventStatusPublished EventStatus = "published"
	// EventStatusCancelled marks an event as called off.
	EventStatusCancelled EventStatus = "cancelled"
)

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled:
		return true
	}
	return false
}

// EventCategory classifies an event.
type EventCategory string

const (
	EventCategoryConference EventCategory = "Conference"
	EventCategorySeminar    EventCategory = "Seminar"
	EventCategoryWorkshop   EventCategory = "Workshop"
	EventCategorySocial     EventCategory = "Social"
	EventCategoryOther      EventCategory = "Other"
)

// ValidEventCategory reports whether c is a known category.
func ValidEventCategory(c EventCategory) bool {
	switch c {
	case EventCategoryConference, EventCategorySeminar, EventCategoryWorkshop,
		EventCategorySocial, EventCategoryOther:
		return true
	}
	return false
}

// EventImage holds the URLs of the stored variants of an event's cover
// image. All fields may be empty when no image is set. This is the only
// internal representation; the legacy single-URL shape is accepted at the
// API boundary and normalized before it reaches this type.
type EventImage struct {
	Original  string `gorm:"size:512" json:"original"`
	Thumbnail string `gorm:"size:512" json:"thumbnail"`
	Medium    string `gorm:"size:512" json:"medium"`
}

// IsZero reports whether no image is set.
func (i EventImage) IsZero() bool {
	return i.Original == "" && i.Thumbnail == "" && i.Medium == ""
}

// EventImageInput accepts either the structured image shape or the legacy
// single-URL string in request bodies. A plain string fills all three
// variant slots, matching how legacy records were migrated.
type EventImageInput struct {
	EventImage
	Set bool `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *EventImageInput) UnmarshalJSON(data []byte) error {
	i.Set = true
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		i.EventImage = EventImage{Original: legacy, Thumbnail: legacy, Medium: legacy}
		return nil
	}
	var structured EventImage
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}
	i.EventImage = structured
	return nil
}

// Event represents a scheduled event in the Event Engage application.
// Version is an optimistic-lock counter: every mutation that can affect
// membership decisions bumps it, and attendee writes are conditioned on it.
type Event struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:100;not null" json:"title"`
	Description string        `gorm:"size:1000;not null" json:"description"`
	Date        time.Time     `gorm:"not null" json:"date"`
	Time        string        `gorm:"size:20;not null" json:"time"`
	Location    string        `gorm:"size:255;not null" json:"location"`
	Category    EventCategory `gorm:"type:varchar(20);not null" json:"category"`
	Capacity    int           `gorm:"not null" json:"capacity"`
	Status      EventStatus   `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Image       EventImage    `gorm:"embedded;embeddedPrefix:image_" json:"image"`
	OrganizerID uint          `gorm:"not null;index" json:"organizer_id"`
	Version     uint          `gorm:"not null;default:0" json:"-"`

	// Organizer and Attendees are expanded to summaries by the repository;
	// AttendeeCount is computed at query time.
	Organizer     *UserSummary  `gorm:"-" json:"organizer,omitempty"`
	Attendees     []UserSummary `gorm:"-" json:"attendees"`
	AttendeeCount int           `gorm:"->" json:"attendee_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EventAttendee maps users to events they have joined. The composite
// primary key makes duplicate membership impossible at the storage layer.
type EventAttendee struct {
	EventID   uint      `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (EventAttendee) TableName() string {
	return "event_attendees"
}

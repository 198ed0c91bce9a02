package repository

import (
	"context"
	"errors"

	"github.com/sagar-1m/Event-Engage/internal/cache"
	"github.com/sagar-1m/Event-Engage/internal/models"
	"github.com/sagar-1m/Event-Engage/internal/observability"

	"gorm.io/gorm"
)

// EventRepository defines the interface for event data operations.
// AppendAttendee and RemoveAttendee are conditional writes guarded by the
// event's version column; they report (false, nil) when the guard fails so
// the caller can re-read and retry.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Event, error)
	List(ctx context.Context, limit, offset int) ([]*models.Event, error)
	GetByOrganizer(ctx context.Context, organizerID uint) ([]*models.Event, error)
	GetByAttendee(ctx context.Context, userID uint) ([]*models.Event, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	AppendAttendee(ctx context.Context, eventID, userID, version uint) (bool, error)
	RemoveAttendee(ctx context.Context, eventID, userID, version uint) (bool, error)
	IsAttending(ctx context.Context, eventID, userID uint) (bool, error)
}

// eventRepository implements EventRepository
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// applyEventDetails adds the attendee count subquery so listings do not need
// a second round trip per event.
func (r *eventRepository) applyEventDetails(db *gorm.DB) *gorm.DB {
	return db.Select("events.*, " +
		"(SELECT COUNT(*) FROM event_attendees WHERE event_attendees.event_id = events.id) as attendee_count")
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	defer observability.TrackQuery("create", "events")()
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		cache.InvalidateEventsList(ctx)
	}
	return err
}

// GetByID returns the event with organizer and attendees expanded, or
// (nil, nil) when no such event exists. Results are served cache-aside.
func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	defer observability.TrackQuery("get", "events")()
	var event models.Event
	err := cache.Aside(ctx, cache.EventKey(id), &event, cache.EventTTL, func() error {
		if err := r.applyEventDetails(r.db.WithContext(ctx)).First(&event, id).Error; err != nil {
			return err
		}
		return r.expandSummaries(ctx, []*models.Event{&event})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetForUpdate reads the event fresh from the database, bypassing the cache.
// Mutation paths must use this so the version guard sees the current value.
func (r *eventRepository) GetForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	defer observability.TrackQuery("get", "events")()
	var event models.Event
	err := r.applyEventDetails(r.db.WithContext(ctx)).First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.expandSummaries(ctx, []*models.Event{&event}); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	defer observability.TrackQuery("list", "events")()
	var events []*models.Event

	fetch := func() error {
		if err := r.applyEventDetails(r.db.WithContext(ctx)).
			Order("date ASC, created_at DESC").
			Limit(limit).
			Offset(offset).
			Find(&events).Error; err != nil {
			return err
		}
		return r.expandSummaries(ctx, events)
	}

	// Only the first page is hot enough to be worth caching.
	if offset == 0 {
		if err := cache.Aside(ctx, cache.EventsListKey, &events, cache.EventsListTTL, fetch); err != nil {
			return nil, err
		}
		return events, nil
	}
	if err := fetch(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetByOrganizer(ctx context.Context, organizerID uint) ([]*models.Event, error) {
	defer observability.TrackQuery("list", "events")()
	var events []*models.Event
	err := r.applyEventDetails(r.db.WithContext(ctx)).
		Where("organizer_id = ?", organizerID).
		Order("date ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	if err := r.expandSummaries(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetByAttendee(ctx context.Context, userID uint) ([]*models.Event, error) {
	defer observability.TrackQuery("list", "events")()
	var events []*models.Event
	err := r.applyEventDetails(r.db.WithContext(ctx)).
		Joins("JOIN event_attendees ON event_attendees.event_id = events.id").
		Where("event_attendees.user_id = ?", userID).
		Order("events.date ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	if err := r.expandSummaries(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateFields applies a partial update and bumps the version so in-flight
// membership writes that read the old record lose their guard.
func (r *eventRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	defer observability.TrackQuery("update", "events")()
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	err := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error
	if err == nil {
		cache.InvalidateEvent(ctx, id)
	}
	return err
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "events")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, id).Error
	})
	if err == nil {
		cache.InvalidateEvent(ctx, id)
	}
	return err
}

// AppendAttendee inserts the attendee row iff the event's version is still
// the one the caller validated against. The version bump and the insert
// commit together, so a competing join or capacity-affecting update makes
// the guard fail instead of corrupting the count.
func (r *eventRepository) AppendAttendee(ctx context.Context, eventID, userID, version uint) (bool, error) {
	defer observability.TrackQuery("update", "event_attendees")()
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).
			Where("id = ? AND version = ?", eventID, version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Exec(
			`INSERT INTO event_attendees (event_id, user_id, created_at)
			 VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT (event_id, user_id) DO NOTHING`,
			eventID, userID,
		).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		cache.InvalidateEvent(ctx, eventID)
	}
	return applied, nil
}

// RemoveAttendee removes the attendee row under the same version guard as
// AppendAttendee.
func (r *eventRepository) RemoveAttendee(ctx context.Context, eventID, userID, version uint) (bool, error) {
	defer observability.TrackQuery("update", "event_attendees")()
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Event{}).
			Where("id = ? AND version = ?", eventID, version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).
			Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		cache.InvalidateEvent(ctx, eventID)
	}
	return applied, nil
}

func (r *eventRepository) IsAttending(ctx context.Context, eventID, userID uint) (bool, error) {
	defer observability.TrackQuery("get", "event_attendees")()
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EventAttendee{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// expandSummaries fills Organizer and Attendees with compact user summaries
// in two batched queries.
func (r *eventRepository) expandSummaries(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	organizerIDs := make([]uint, 0, len(events))
	eventIDs := make([]uint, 0, len(events))
	seen := map[uint]struct{}{}
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
		if _, ok := seen[e.OrganizerID]; !ok {
			seen[e.OrganizerID] = struct{}{}
			organizerIDs = append(organizerIDs, e.OrganizerID)
		}
	}

	var organizers []models.UserSummary
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", organizerIDs).
		Find(&organizers).Error; err != nil {
		return err
	}
	byID := make(map[uint]models.UserSummary, len(organizers))
	for _, o := range organizers {
		byID[o.ID] = o
	}

	type attendeeRow struct {
		EventID uint
		models.UserSummary
	}
	var rows []attendeeRow
	if err := r.db.WithContext(ctx).
		Table("event_attendees").
		Select("event_attendees.event_id, users.id, users.name, users.email").
		Joins("JOIN users ON users.id = event_attendees.user_id").
		Where("event_attendees.event_id IN ?", eventIDs).
		Order("event_attendees.created_at ASC").
		Scan(&rows).Error; err != nil {
		return err
	}
	byEvent := make(map[uint][]models.UserSummary, len(events))
	for _, row := range rows {
		byEvent[row.EventID] = append(byEvent[row.EventID], row.UserSummary)
	}

	for _, e := range events {
		if o, ok := byID[e.OrganizerID]; ok {
			org := o
			e.Organizer = &org
		}
		e.Attendees = byEvent[e.ID]
		if e.Attendees == nil {
			e.Attendees = []models.UserSummary{}
		}
	}
	return nil
}

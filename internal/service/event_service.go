// Package service implements the application's business rules on top of the
// repository and asset layers.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/assets"
	"github.com/sagar-1m/Event-Engage/internal/middleware"
	"github.com/sagar-1m/Event-Engage/internal/models"
	"github.com/sagar-1m/Event-Engage/internal/observability"
	"github.com/sagar-1m/Event-Engage/internal/repository"
)

// membershipRetries bounds the optimistic-lock retry loop for join/leave.
const membershipRetries = 3

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
)

// EventService owns all event lifecycle invariants: creation, mutation,
// membership and cover image association.
type EventService struct {
	eventRepo repository.EventRepository
	assets    assets.Store
}

// CreateEventInput carries the fields for a new event. ImageData, when
// non-empty, is uploaded before the event row is written.
type CreateEventInput struct {
	OrganizerID      uint
	Title            string
	Description      string
	Date             time.Time
	Time             string
	Location         string
	Category         models.EventCategory
	Capacity         int
	Status           models.EventStatus
	Image            models.EventImageInput
	ImageData        []byte
	ImageContentType string
}

// UpdateEventInput carries a partial update; nil pointers leave the stored
// value untouched.
type UpdateEventInput struct {
	Title            *string
	Description      *string
	Date             *time.Time
	Time             *string
	Location         *string
	Category         *models.EventCategory
	Capacity         *int
	Status           *models.EventStatus
	Image            *models.EventImageInput
	ImageData        []byte
	ImageContentType string
}

// NewEventService creates a new event service.
func NewEventService(eventRepo repository.EventRepository, store assets.Store) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		assets:    store,
	}
}

// GetEvent returns the event with organizer and attendees expanded.
func (s *EventService) GetEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if event == nil {
		return nil, models.NewNotFoundError("Event", eventID)
	}
	return event, nil
}

// ListEvents returns a page of events.
func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	events, err := s.eventRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// GetOrganizedEvents returns events organized by the user.
func (s *EventService) GetOrganizedEvents(ctx context.Context, userID uint) ([]*models.Event, error) {
	events, err := s.eventRepo.GetByOrganizer(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// GetJoinedEvents returns events the user attends.
func (s *EventService) GetJoinedEvents(ctx context.Context, userID uint) ([]*models.Event, error) {
	events, err := s.eventRepo.GetByAttendee(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// CreateEvent validates the input, uploads the cover image when provided and
// persists the event. An upload failure aborts the whole operation; no event
// row is written.
func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	if err := validateEventFields(in.Title, in.Description, in.Date, in.Time, in.Location, in.Category, in.Capacity); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.EventStatusDraft
	}
	if !models.ValidEventStatus(status) {
		return nil, models.NewValidationError("Invalid event status")
	}

	image := in.Image.EventImage
	if len(in.ImageData) > 0 {
		uploaded, err := s.assets.Upload(ctx, in.ImageData, in.ImageContentType)
		if err != nil {
			observability.AssetUploadFailures.WithLabelValues("create").Inc()
			return nil, err
		}
		image = models.EventImage{
			Original:  uploaded.URL,
			Medium:    uploaded.MediumURL,
			Thumbnail: uploaded.ThumbnailURL,
		}
	}

	event := &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		Category:    in.Category,
		Capacity:    in.Capacity,
		Status:      status,
		Image:       image,
		OrganizerID: in.OrganizerID,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.EventsCreated.WithLabelValues(string(event.Category)).Inc()

	created, err := s.eventRepo.GetForUpdate(ctx, event.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return created, nil
}

// UpdateEvent merges the supplied fields into the event. Only the organizer
// may update. When new image bytes are given the old asset is deleted
// best-effort and the new one uploaded before the row changes; the upload
// failing aborts the update with the stored record untouched.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, callerID uint, in UpdateEventInput) (*models.Event, error) {
	event, err := s.eventRepo.GetForUpdate(ctx, eventID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if event == nil {
		return nil, models.NewNotFoundError("Event", eventID)
	}
	if event.OrganizerID != callerID {
		return nil, models.NewForbiddenError("Only the organizer can update this event")
	}

	fields, err := buildUpdateFields(in)
	if err != nil {
		return nil, err
	}

	staleRef := ""
	if len(in.ImageData) > 0 {
		uploaded, uploadErr := s.assets.Upload(ctx, in.ImageData, in.ImageContentType)
		if uploadErr != nil {
			observability.AssetUploadFailures.WithLabelValues("update").Inc()
			return nil, uploadErr
		}
		fields["image_original"] = uploaded.URL
		fields["image_medium"] = uploaded.MediumURL
		fields["image_thumbnail"] = uploaded.ThumbnailURL
		staleRef = ResolveImageReference(event.Image)
	} else if in.Image != nil && in.Image.Set {
		fields["image_original"] = in.Image.Original
		fields["image_medium"] = in.Image.Medium
		fields["image_thumbnail"] = in.Image.Thumbnail
	}

	if len(fields) > 0 {
		if err := s.eventRepo.UpdateFields(ctx, eventID, fields); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	// The replaced asset is only orphaned once the row points at the new one.
	s.deleteAssetBestEffort(ctx, staleRef)

	updated, err := s.eventRepo.GetForUpdate(ctx, eventID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return updated, nil
}

// DeleteEvent removes the event and best-effort deletes its cover image.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, callerID uint) error {
	event, err := s.eventRepo.GetForUpdate(ctx, eventID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if event == nil {
		return models.NewNotFoundError("Event", eventID)
	}
	if event.OrganizerID != callerID {
		return models.NewForbiddenError("Only the organizer can delete this event")
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		return models.NewInternalError(err)
	}

	s.deleteAssetBestEffort(ctx, ResolveImageReference(event.Image))
	return nil
}

// JoinEvent adds the caller as an attendee. The capacity check and the
// attendee insert commit atomically through the event's version guard;
// competing writers retry against a fresh read up to membershipRetries times.
func (s *EventService) JoinEvent(ctx context.Context, eventID, callerID uint) (*models.Event, error) {
	for attempt := 0; attempt < membershipRetries; attempt++ {
		event, err := s.eventRepo.GetForUpdate(ctx, eventID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if event == nil {
			return nil, models.NewNotFoundError("Event", eventID)
		}
		if event.Status != models.EventStatusPublished {
			return nil, models.NewInvalidStateError("Cannot join an event that is not published")
		}
		if event.OrganizerID == callerID {
			return nil, models.NewSelfJoinError()
		}
		if containsUser(event.Attendees, callerID) {
			return nil, models.NewAlreadyJoinedError()
		}
		if event.AttendeeCount >= event.Capacity {
			return nil, models.NewCapacityExceededError()
		}

		applied, err := s.eventRepo.AppendAttendee(ctx, eventID, callerID, event.Version)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if applied {
			joined, err := s.eventRepo.GetForUpdate(ctx, eventID)
			if err != nil {
				return nil, models.NewInternalError(err)
			}
			return joined, nil
		}
		observability.MembershipConflictRetries.WithLabelValues("join", "retried").Inc()
	}

	observability.MembershipConflictRetries.WithLabelValues("join", "exhausted").Inc()
	return nil, models.NewConcurrencyError("Event is being updated, please try again")
}

// LeaveEvent removes the caller from the attendee list with the same retry
// discipline as JoinEvent.
func (s *EventService) LeaveEvent(ctx context.Context, eventID, callerID uint) (*models.Event, error) {
	for attempt := 0; attempt < membershipRetries; attempt++ {
		event, err := s.eventRepo.GetForUpdate(ctx, eventID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if event == nil {
			return nil, models.NewNotFoundError("Event", eventID)
		}
		if !containsUser(event.Attendees, callerID) {
			return nil, models.NewNotJoinedError()
		}

		applied, err := s.eventRepo.RemoveAttendee(ctx, eventID, callerID, event.Version)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if applied {
			left, err := s.eventRepo.GetForUpdate(ctx, eventID)
			if err != nil {
				return nil, models.NewInternalError(err)
			}
			return left, nil
		}
		observability.MembershipConflictRetries.WithLabelValues("leave", "retried").Inc()
	}

	observability.MembershipConflictRetries.WithLabelValues("leave", "exhausted").Inc()
	return nil, models.NewConcurrencyError("Event is being updated, please try again")
}

// UploadCoverImage stores a standalone cover image and returns its variants.
func (s *EventService) UploadCoverImage(ctx context.Context, content []byte, contentType string) (*assets.UploadResult, error) {
	res, err := s.assets.Upload(ctx, content, contentType)
	if err != nil {
		observability.AssetUploadFailures.WithLabelValues("standalone").Inc()
		return nil, err
	}
	return res, nil
}

// ResolveImageReference derives the asset store reference from a stored
// image value. It never fails: an empty result means nothing to delete.
func ResolveImageReference(image models.EventImage) string {
	if image.IsZero() {
		return ""
	}
	for _, u := range []string{image.Original, image.Medium, image.Thumbnail} {
		if ref := assets.PublicIDFromURL(u); ref != "" {
			return ref
		}
	}
	return ""
}

// deleteAssetBestEffort attempts the deletion once and logs the outcome. A
// failure leaves an orphaned asset but never fails the calling operation.
func (s *EventService) deleteAssetBestEffort(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.assets.Delete(ctx, publicID); err != nil {
		observability.AssetOrphanDeletes.WithLabelValues("failed").Inc()
		middleware.Logger.WarnContext(ctx, "stale cover image not deleted",
			slog.String("public_id", publicID),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.AssetOrphanDeletes.WithLabelValues("deleted").Inc()
}

func containsUser(users []models.UserSummary, userID uint) bool {
	for _, u := range users {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func validateEventFields(title, description string, date time.Time, timeStr, location string, category models.EventCategory, capacity int) error {
	if title == "" || description == "" || timeStr == "" || location == "" || date.IsZero() {
		return models.NewValidationError("Title, description, date, time and location are required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 100 characters)")
	}
	if len(description) > maxDescriptionLen {
		return models.NewValidationError("Description too long (max 1000 characters)")
	}
	if !models.ValidEventCategory(category) {
		return models.NewValidationError("Invalid event category")
	}
	if capacity < 1 {
		return models.NewValidationError("Capacity must be at least 1")
	}
	return nil
}

func buildUpdateFields(in UpdateEventInput) (map[string]any, error) {
	fields := map[string]any{}
	if in.Title != nil {
		if *in.Title == "" || len(*in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title must be 1-100 characters")
		}
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		if *in.Description == "" || len(*in.Description) > maxDescriptionLen {
			return nil, models.NewValidationError("Description must be 1-1000 characters")
		}
		fields["description"] = *in.Description
	}
	if in.Date != nil {
		if in.Date.IsZero() {
			return nil, models.NewValidationError("Invalid date")
		}
		fields["date"] = *in.Date
	}
	if in.Time != nil {
		if *in.Time == "" {
			return nil, models.NewValidationError("Time is required")
		}
		fields["time"] = *in.Time
	}
	if in.Location != nil {
		if *in.Location == "" {
			return nil, models.NewValidationError("Location is required")
		}
		fields["location"] = *in.Location
	}
	if in.Category != nil {
		if !models.ValidEventCategory(*in.Category) {
			return nil, models.NewValidationError("Invalid event category")
		}
		fields["category"] = *in.Category
	}
	if in.Capacity != nil {
		if *in.Capacity < 1 {
			return nil, models.NewValidationError("Capacity must be at least 1")
		}
		fields["capacity"] = *in.Capacity
	}
	if in.Status != nil {
		if !models.ValidEventStatus(*in.Status) {
			return nil, models.NewValidationError("Invalid event status")
		}
		fields["status"] = *in.Status
	}
	return fields, nil
}

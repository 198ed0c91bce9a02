package repository

import (
	"context"
	"testing"

	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 10)

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, event.Title, got.Title)
	assert.Equal(t, 0, got.AttendeeCount)
	require.NotNil(t, got.Organizer)
	assert.Equal(t, organizer.Name, got.Organizer.Name)
	assert.Empty(t, got.Attendees)
}

func TestEventRepository_GetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)

	got, err := repo.GetByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEventRepository_AppendAttendee_VersionGuard(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	attendee := createTestUser(t, db, "Attendee", "attendee@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 10)

	applied, err := repo.AppendAttendee(ctx, event.ID, attendee.ID, event.Version)
	require.NoError(t, err)
	assert.True(t, applied)

	// Same stale version must be rejected.
	other := createTestUser(t, db, "Other", "other@example.com")
	applied, err = repo.AppendAttendee(ctx, event.ID, other.ID, event.Version)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttendeeCount)
	assert.Equal(t, event.Version+1, got.Version)

	// Retrying with the fresh version succeeds.
	applied, err = repo.AppendAttendee(ctx, event.ID, other.ID, got.Version)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestEventRepository_AppendAttendee_DuplicateIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	attendee := createTestUser(t, db, "Attendee", "attendee@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 10)

	applied, err := repo.AppendAttendee(ctx, event.ID, attendee.ID, event.Version)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)

	// The composite primary key swallows the duplicate insert.
	applied, err = repo.AppendAttendee(ctx, event.ID, attendee.ID, got.Version)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err = repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttendeeCount)
}

func TestEventRepository_RemoveAttendee(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	attendee := createTestUser(t, db, "Attendee", "attendee@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 10)

	applied, err := repo.AppendAttendee(ctx, event.ID, attendee.ID, event.Version)
	require.NoError(t, err)
	require.True(t, applied)

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)

	applied, err = repo.RemoveAttendee(ctx, event.ID, attendee.ID, got.Version)
	require.NoError(t, err)
	assert.True(t, applied)

	attending, err := repo.IsAttending(ctx, event.ID, attendee.ID)
	require.NoError(t, err)
	assert.False(t, attending)

	got, err = repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AttendeeCount)
}

func TestEventRepository_UpdateFieldsBumpsVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusDraft, 10)

	require.NoError(t, repo.UpdateFields(ctx, event.ID, map[string]any{
		"title":  "Renamed",
		"status": models.EventStatusPublished,
	}))

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, models.EventStatusPublished, got.Status)
	assert.Equal(t, event.Version+1, got.Version)
}

func TestEventRepository_DeleteRemovesAttendees(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	attendee := createTestUser(t, db, "Attendee", "attendee@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 10)

	applied, err := repo.AppendAttendee(ctx, event.ID, attendee.ID, event.Version)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, repo.Delete(ctx, event.ID))

	got, err := repo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int64
	require.NoError(t, db.Model(&models.EventAttendee{}).Where("event_id = ?", event.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEventRepository_ListAndUserScopes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	e1 := createTestEvent(t, db, alice.ID, models.EventStatusPublished, 5)
	e2 := createTestEvent(t, db, bob.ID, models.EventStatusPublished, 5)

	applied, err := repo.AppendAttendee(ctx, e2.ID, alice.ID, e2.Version)
	require.NoError(t, err)
	require.True(t, applied)

	all, err := repo.List(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	organized, err := repo.GetByOrganizer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, organized, 1)
	assert.Equal(t, e1.ID, organized[0].ID)

	joined, err := repo.GetByAttendee(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, e2.ID, joined[0].ID)
	assert.Equal(t, 1, joined[0].AttendeeCount)
}

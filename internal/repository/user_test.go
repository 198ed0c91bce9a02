package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Name: "Alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alice", byID.Name)
	assert.Equal(t, models.UserRoleMember, byID.Role)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserRepository_GetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	byID, err := repo.GetByID(ctx, 424242)
	require.NoError(t, err)
	assert.Nil(t, byID)

	byEmail, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, byEmail)
}

func TestUserRepository_UpdateProfileAndPassword(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "Bob", "bob@example.com")

	require.NoError(t, repo.UpdateProfile(ctx, user.ID, map[string]any{
		"name":  "Robert",
		"email": "robert@example.com",
	}))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)
	assert.Equal(t, "robert@example.com", got.Email)
	assert.Equal(t, "new-hash", got.Password)
}

func TestUserRepository_DeleteReleasesAttendance(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepository(db)
	eventRepo := NewEventRepository(db)
	ctx := context.Background()

	organizer := createTestUser(t, db, "Organizer", "organizer@example.com")
	attendee := createTestUser(t, db, "Attendee", "attendee@example.com")
	event := createTestEvent(t, db, organizer.ID, models.EventStatusPublished, 1)

	applied, err := eventRepo.AppendAttendee(ctx, event.ID, attendee.ID, event.Version)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, userRepo.Delete(ctx, attendee.ID))

	got, err := userRepo.GetByID(ctx, attendee.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The freed seat is visible again.
	fresh, err := eventRepo.GetForUpdate(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.AttendeeCount)
}

func TestUserRepository_GuestExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	guest := &models.User{
		Name:           "Guest User",
		Email:          "guest-1@guest.local",
		Password:       "hash",
		IsGuest:        true,
		GuestExpiresAt: &expired,
	}
	require.NoError(t, repo.Create(ctx, guest))

	got, err := repo.GetByID(ctx, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.GuestExpired(time.Now()))
}

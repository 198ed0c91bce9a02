package seed

import (
	"testing"

	"github.com/sagar-1m/Event-Engage/internal/database"
	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSeedPopulatesDatabase(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Seed(db, Options{NumUsers: 8, NumEvents: 12, ShouldClean: true}))

	var userCount, eventCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Event{}).Count(&eventCount).Error)
	assert.EqualValues(t, 8, userCount)
	assert.EqualValues(t, 12, eventCount)

	var events []models.Event
	require.NoError(t, db.Find(&events).Error)
	for _, event := range events {
		var attendees []models.EventAttendee
		require.NoError(t, db.Where("event_id = ?", event.ID).Find(&attendees).Error)

		assert.LessOrEqual(t, len(attendees), event.Capacity, "event %d over capacity", event.ID)
		if event.Status != models.EventStatusPublished {
			assert.Empty(t, attendees, "non-published event %d has attendees", event.ID)
		}

		seen := map[uint]bool{}
		for _, a := range attendees {
			assert.NotEqual(t, event.OrganizerID, a.UserID, "organizer joined own event %d", event.ID)
			assert.False(t, seen[a.UserID], "duplicate attendee on event %d", event.ID)
			seen[a.UserID] = true
		}
	}
}

func TestSeedCleanRemovesPreviousData(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Seed(db, Options{NumUsers: 3, NumEvents: 4, ShouldClean: false}))
	require.NoError(t, Seed(db, Options{NumUsers: 2, NumEvents: 2, ShouldClean: true}))

	var userCount, eventCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Event{}).Count(&eventCount).Error)
	assert.EqualValues(t, 2, userCount)
	assert.EqualValues(t, 2, eventCount)
}

func TestBuildEventIsValid(t *testing.T) {
	organizer := &models.User{Name: "Org", Email: "org@example.com"}
	organizer.ID = 42

	for i := 0; i < 20; i++ {
		event := BuildEvent(organizer)
		assert.NotEmpty(t, event.Title)
		assert.NotEmpty(t, event.Description)
		assert.True(t, models.ValidEventCategory(event.Category))
		assert.True(t, models.ValidEventStatus(event.Status))
		assert.GreaterOrEqual(t, event.Capacity, 1)
		assert.Equal(t, uint(42), event.OrganizerID)
	}
}

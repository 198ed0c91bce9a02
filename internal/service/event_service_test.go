package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/assets"
	"github.com/sagar-1m/Event-Engage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo is an in-memory EventRepository with the same version-guard
// semantics as the real one, safe for concurrent use.
type fakeEventRepo struct {
	mu        sync.Mutex
	nextID    uint
	events    map[uint]*models.Event
	attendees map[uint]map[uint]bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		nextID:    1,
		events:    map[uint]*models.Event{},
		attendees: map[uint]map[uint]bool{},
	}
}

func (r *fakeEventRepo) Create(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	copied := *event
	r.events[event.ID] = &copied
	r.attendees[event.ID] = map[uint]bool{}
	return nil
}

func (r *fakeEventRepo) snapshot(id uint) *models.Event {
	stored, ok := r.events[id]
	if !ok {
		return nil
	}
	copied := *stored
	copied.Attendees = []models.UserSummary{}
	for uid := range r.attendees[id] {
		copied.Attendees = append(copied.Attendees, models.UserSummary{ID: uid})
	}
	copied.AttendeeCount = len(copied.Attendees)
	return &copied
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(id), nil
}

func (r *fakeEventRepo) GetForUpdate(_ context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(id), nil
}

func (r *fakeEventRepo) List(_ context.Context, limit, offset int) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for id := range r.events {
		out = append(out, r.snapshot(id))
	}
	return out, nil
}

func (r *fakeEventRepo) GetByOrganizer(_ context.Context, organizerID uint) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for id, e := range r.events {
		if e.OrganizerID == organizerID {
			out = append(out, r.snapshot(id))
		}
	}
	return out, nil
}

func (r *fakeEventRepo) GetByAttendee(_ context.Context, userID uint) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for id := range r.events {
		if r.attendees[id][userID] {
			out = append(out, r.snapshot(id))
		}
	}
	return out, nil
}

func (r *fakeEventRepo) UpdateFields(_ context.Context, id uint, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[id]
	if !ok {
		return errors.New("no such event")
	}
	for k, v := range fields {
		switch k {
		case "title":
			stored.Title = v.(string)
		case "description":
			stored.Description = v.(string)
		case "date":
			stored.Date = v.(time.Time)
		case "time":
			stored.Time = v.(string)
		case "location":
			stored.Location = v.(string)
		case "category":
			stored.Category = v.(models.EventCategory)
		case "capacity":
			stored.Capacity = v.(int)
		case "status":
			stored.Status = v.(models.EventStatus)
		case "image_original":
			stored.Image.Original = v.(string)
		case "image_medium":
			stored.Image.Medium = v.(string)
		case "image_thumbnail":
			stored.Image.Thumbnail = v.(string)
		}
	}
	stored.Version++
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	delete(r.attendees, id)
	return nil
}

func (r *fakeEventRepo) AppendAttendee(_ context.Context, eventID, userID, version uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[eventID]
	if !ok || stored.Version != version {
		return false, nil
	}
	stored.Version++
	r.attendees[eventID][userID] = true
	return true, nil
}

func (r *fakeEventRepo) RemoveAttendee(_ context.Context, eventID, userID, version uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[eventID]
	if !ok || stored.Version != version {
		return false, nil
	}
	stored.Version++
	delete(r.attendees[eventID], userID)
	return true, nil
}

func (r *fakeEventRepo) IsAttending(_ context.Context, eventID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attendees[eventID][userID], nil
}

// fakeAssetStore records uploads and deletions.
type fakeAssetStore struct {
	mu         sync.Mutex
	uploads    int
	deletes    []string
	failUpload bool
	failDelete bool
}

func (s *fakeAssetStore) Upload(_ context.Context, content []byte, _ string) (*assets.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpload {
		return nil, models.NewAssetUploadError(errors.New("disk full"))
	}
	s.uploads++
	id := fmt.Sprintf("asset-%d", s.uploads)
	return &assets.UploadResult{
		URL:          fmt.Sprintf("/media/events/%s/original.jpg", id),
		MediumURL:    fmt.Sprintf("/media/events/%s/medium.jpg", id),
		ThumbnailURL: fmt.Sprintf("/media/events/%s/thumbnail.jpg", id),
		PublicID:     "events/" + id,
	}, nil
}

func (s *fakeAssetStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, publicID)
	if s.failDelete {
		return errors.New("permission denied")
	}
	return nil
}

func validCreateInput(organizerID uint) CreateEventInput {
	return CreateEventInput{
		OrganizerID: organizerID,
		Title:       "Go Meetup",
		Description: "Monthly community meetup",
		Date:        time.Now().Add(72 * time.Hour),
		Time:        "19:00",
		Location:    "Community Hall",
		Category:    models.EventCategorySocial,
		Capacity:    10,
	}
}

func newTestService() (*EventService, *fakeEventRepo, *fakeAssetStore) {
	repo := newFakeEventRepo()
	store := &fakeAssetStore{}
	return NewEventService(repo, store), repo, store
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	missing := validCreateInput(1)
	missing.Title = ""
	_, err := svc.CreateEvent(ctx, missing)
	assert.Equal(t, models.CodeValidation, appErrCode(t, err))

	badCapacity := validCreateInput(1)
	badCapacity.Capacity = 0
	_, err = svc.CreateEvent(ctx, badCapacity)
	assert.Equal(t, models.CodeValidation, appErrCode(t, err))

	badCategory := validCreateInput(1)
	badCategory.Category = "Festival"
	_, err = svc.CreateEvent(ctx, badCategory)
	assert.Equal(t, models.CodeValidation, appErrCode(t, err))
}

func TestCreateEvent_DefaultsToDraft(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.CreateEvent(context.Background(), validCreateInput(1))
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDraft, created.Status)
	assert.Equal(t, 0, created.AttendeeCount)
	assert.Empty(t, created.Attendees)
}

func TestCreateEvent_UploadFailureAborts(t *testing.T) {
	svc, repo, store := newTestService()
	store.failUpload = true

	in := validCreateInput(1)
	in.ImageData = []byte("image-bytes")
	in.ImageContentType = "image/png"

	_, err := svc.CreateEvent(context.Background(), in)
	assert.Equal(t, models.CodeAssetUpload, appErrCode(t, err))

	// No event row was written.
	events, listErr := repo.List(context.Background(), 10, 0)
	require.NoError(t, listErr)
	assert.Empty(t, events)
}

func TestJoinEvent_Rules(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.JoinEvent(ctx, 999, 2)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))

	draft, err := svc.CreateEvent(ctx, validCreateInput(1))
	require.NoError(t, err)
	_, err = svc.JoinEvent(ctx, draft.ID, 2)
	assert.Equal(t, models.CodeInvalidState, appErrCode(t, err))

	published := validCreateInput(1)
	published.Status = models.EventStatusPublished
	event, err := svc.CreateEvent(ctx, published)
	require.NoError(t, err)

	_, err = svc.JoinEvent(ctx, event.ID, 1)
	assert.Equal(t, models.CodeSelfJoin, appErrCode(t, err))

	joined, err := svc.JoinEvent(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, joined.AttendeeCount)

	_, err = svc.JoinEvent(ctx, event.ID, 2)
	assert.Equal(t, models.CodeAlreadyJoined, appErrCode(t, err))

	again, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.AttendeeCount, "double join must not duplicate")
}

func TestJoinEvent_CapacityNeverExceededUnderConcurrency(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.Capacity = 1
	in.Status = models.EventStatusPublished
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	const joiners = 8
	results := make(chan error, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, joinErr := svc.JoinEvent(ctx, event.ID, userID)
			results <- joinErr
		}(uint(100 + i))
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		code := appErrCode(t, err)
		assert.Contains(t, []string{models.CodeCapacityExceeded, models.CodeConcurrency}, code)
	}
	assert.Equal(t, 1, successes, "exactly one join must win")

	final, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.AttendeeCount)
}

func TestJoinLeave_CapacityTwoScenario(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.Capacity = 2
	in.Status = models.EventStatusPublished
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	const userA, userB, userC = 10, 11, 12

	_, err = svc.JoinEvent(ctx, event.ID, userA)
	require.NoError(t, err)
	_, err = svc.JoinEvent(ctx, event.ID, userB)
	require.NoError(t, err)

	_, err = svc.JoinEvent(ctx, event.ID, userC)
	assert.Equal(t, models.CodeCapacityExceeded, appErrCode(t, err))

	_, err = svc.LeaveEvent(ctx, event.ID, userA)
	require.NoError(t, err)

	after, err := svc.JoinEvent(ctx, event.ID, userC)
	require.NoError(t, err)
	assert.Equal(t, 2, after.AttendeeCount)
}

func TestLeaveEvent_NotJoined(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.Status = models.EventStatusPublished
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	_, err = svc.LeaveEvent(ctx, event.ID, 2)
	assert.Equal(t, models.CodeNotJoined, appErrCode(t, err))
}

func TestUpdateEvent_Authorization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, validCreateInput(1))
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.UpdateEvent(ctx, event.ID, 99, UpdateEventInput{Title: &title})
	assert.Equal(t, models.CodeForbidden, appErrCode(t, err))

	unchanged, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Title, unchanged.Title)

	_, err = svc.UpdateEvent(ctx, 4242, 1, UpdateEventInput{Title: &title})
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
}

func TestUpdateEvent_ImageReplacementLifecycle(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.ImageData = []byte("first-image")
	in.ImageContentType = "image/png"
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)
	oldOriginal := event.Image.Original
	require.NotEmpty(t, oldOriginal)

	updated, err := svc.UpdateEvent(ctx, event.ID, 1, UpdateEventInput{
		ImageData:        []byte("second-image"),
		ImageContentType: "image/png",
	})
	require.NoError(t, err)

	// Exactly one delete attempt, for the reference derived from the old URL.
	require.Len(t, store.deletes, 1)
	assert.Equal(t, assets.PublicIDFromURL(oldOriginal), store.deletes[0])

	assert.NotEqual(t, oldOriginal, updated.Image.Original)
	assert.NotContains(t, updated.Image.Medium, "asset-1")
	assert.NotContains(t, updated.Image.Thumbnail, "asset-1")
}

func TestUpdateEvent_StaleDeleteFailureIsNotFatal(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.ImageData = []byte("first-image")
	in.ImageContentType = "image/png"
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	store.failDelete = true
	updated, err := svc.UpdateEvent(ctx, event.ID, 1, UpdateEventInput{
		ImageData:        []byte("second-image"),
		ImageContentType: "image/png",
	})
	require.NoError(t, err)
	assert.NotEqual(t, event.Image.Original, updated.Image.Original)
}

func TestUpdateEvent_UploadFailureLeavesRecordUntouched(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.ImageData = []byte("first-image")
	in.ImageContentType = "image/png"
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	store.failUpload = true
	title := "New Title"
	_, err = svc.UpdateEvent(ctx, event.ID, 1, UpdateEventInput{
		Title:            &title,
		ImageData:        []byte("second-image"),
		ImageContentType: "image/png",
	})
	assert.Equal(t, models.CodeAssetUpload, appErrCode(t, err))

	unchanged, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Title, unchanged.Title)
	assert.Equal(t, event.Image.Original, unchanged.Image.Original)
	assert.Empty(t, store.deletes, "old asset must survive a failed replacement")
}

func TestDeleteEvent(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	in := validCreateInput(1)
	in.ImageData = []byte("cover")
	in.ImageContentType = "image/png"
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	err = svc.DeleteEvent(ctx, event.ID, 99)
	assert.Equal(t, models.CodeForbidden, appErrCode(t, err))

	require.NoError(t, svc.DeleteEvent(ctx, event.ID, 1))
	assert.Len(t, store.deletes, 1)

	// Second delete of the same id fails.
	err = svc.DeleteEvent(ctx, event.ID, 1)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))

	err = svc.DeleteEvent(ctx, 31337, 1)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
}

func TestResolveImageReference(t *testing.T) {
	assert.Equal(t, "", ResolveImageReference(models.EventImage{}))

	structured := models.EventImage{
		Original:  "/media/events/abc/original.jpg",
		Medium:    "/media/events/abc/medium.jpg",
		Thumbnail: "/media/events/abc/thumbnail.jpg",
	}
	assert.Equal(t, "events/abc", ResolveImageReference(structured))

	legacy := models.EventImage{
		Original:  "https://cdn.example.com/v1/events/cover9.png",
		Medium:    "https://cdn.example.com/v1/events/cover9.png",
		Thumbnail: "https://cdn.example.com/v1/events/cover9.png",
	}
	assert.Equal(t, "events/cover9", ResolveImageReference(legacy))
}

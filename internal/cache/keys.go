package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	EventKeyPrefix = "event:%d"
	EventsListKey  = "events:list:first"
	UserKeyPrefix  = "user:%d"
)

const (
	EventTTL      = 10 * time.Minute
	EventsListTTL = 1 * time.Minute
	UserTTL       = 5 * time.Minute
)

func EventKey(eventID uint) string {
	return fmt.Sprintf(EventKeyPrefix, eventID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateEvent(ctx context.Context, eventID uint) {
	Invalidate(ctx, EventKey(eventID))
	Invalidate(ctx, EventsListKey)
}

func InvalidateEventsList(ctx context.Context) {
	Invalidate(ctx, EventsListKey)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

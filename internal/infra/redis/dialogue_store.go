package redis

import (
	"context"
	"strconv"
	"time"

	"course-quiz-bot/internal/app"
	"github.com/redis/go-redis/v9"
)

// DialogueStore keeps the "quiz running" marker per user in Redis so chat
// routing can consult it. The TTL bounds a marker left behind by a crash.
type DialogueStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDialogueStore(client *redis.Client, ttl time.Duration) *DialogueStore {
	return &DialogueStore{client: client, ttl: ttl}
}

func (d *DialogueStore) Handle(userID int64) app.DialogueHandle {
	return dialogueHandle{store: d, userID: userID}
}

func (d *DialogueStore) Running(ctx context.Context, userID int64) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DialogueStore) key(userID int64) string {
	return "quiz:dialogue:" + strconv.FormatInt(userID, 10)
}

type dialogueHandle struct {
	store  *DialogueStore
	userID int64
}

func (h dialogueHandle) Set(ctx context.Context) error {
	return h.store.client.Set(ctx, h.store.key(h.userID), "running", h.store.ttl).Err()
}

func (h dialogueHandle) Clear(ctx context.Context) error {
	return h.store.client.Del(ctx, h.store.key(h.userID)).Err()
}

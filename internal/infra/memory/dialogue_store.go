package memory

import (
	"context"
	"sync"

	"course-quiz-bot/internal/app"
)

// DialogueStore tracks which users are inside a running quiz.
type DialogueStore struct {
	mu      sync.RWMutex
	running map[int64]struct{}
}

func NewDialogueStore() *DialogueStore {
	return &DialogueStore{running: make(map[int64]struct{})}
}

// Handle returns the per-user marker handed to the quiz engine.
func (d *DialogueStore) Handle(userID int64) app.DialogueHandle {
	return dialogueHandle{store: d, userID: userID}
}

func (d *DialogueStore) Running(_ context.Context, userID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.running[userID]
	return ok, nil
}

type dialogueHandle struct {
	store  *DialogueStore
	userID int64
}

func (h dialogueHandle) Set(context.Context) error {
	h.store.mu.Lock()
	h.store.running[h.userID] = struct{}{}
	h.store.mu.Unlock()
	return nil
}

func (h dialogueHandle) Clear(context.Context) error {
	h.store.mu.Lock()
	delete(h.store.running, h.userID)
	h.store.mu.Unlock()
	return nil
}

package app

import "sync"

// userLocks hands out one mutex per user. Entries are never removed so a lock
// obtained by a late event is the same one a new session uses.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *userLocks) get(userID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// pollBinding ties a presentation identifier to the question it was sent for.
type pollBinding struct {
	userID     int64
	index      int
	correctIdx int
}

// pollIndex holds PollBinding and FinalizedSet. Reads for routing are taken
// without the user lock; callers re-validate inside it.
type pollIndex struct {
	mu        sync.Mutex
	bindings  map[string]pollBinding
	finalized map[string]int64
}

func newPollIndex() *pollIndex {
	return &pollIndex{
		bindings:  make(map[string]pollBinding),
		finalized: make(map[string]int64),
	}
}

func (p *pollIndex) bind(pollID string, b pollBinding) {
	p.mu.Lock()
	p.bindings[pollID] = b
	p.mu.Unlock()
}

// take removes and returns the binding for pollID.
func (p *pollIndex) take(pollID string) (pollBinding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.bindings[pollID]
	if ok {
		delete(p.bindings, pollID)
	}
	return b, ok
}

// markFinalized reports false if pollID was already finalized.
func (p *pollIndex) markFinalized(pollID string, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, done := p.finalized[pollID]; done {
		return false
	}
	p.finalized[pollID] = userID
	delete(p.bindings, pollID)
	return true
}

func (p *pollIndex) isFinalized(pollID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, done := p.finalized[pollID]
	return done
}

// purge drops every binding and finalized entry that belongs to userID.
func (p *pollIndex) purge(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, b := range p.bindings {
		if b.userID == userID {
			delete(p.bindings, id)
		}
	}
	for id, owner := range p.finalized {
		if owner == userID {
			delete(p.finalized, id)
		}
	}
}

func (p *pollIndex) size() (bindings, finalized int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bindings), len(p.finalized)
}

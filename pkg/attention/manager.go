package attention

import (
	"context"

	"classlens/pkg/scoring"
)

// UpdateFunc maps the previous state of a stream to the next one.
type UpdateFunc func(prev scoring.AttentionState) (scoring.AttentionState, error)

// Manager serializes read-modify-write cycles per session. Different sessions
// proceed in parallel. When the store is a Locker the session is also locked
// in the store, so Managers sharing it never interleave.
type Manager struct {
	store    Store
	baseline scoring.AttentionState
	locks    *keyedMutex
}

func NewManager(store Store, baseline scoring.AttentionState) *Manager {
	return &Manager{
		store:    store,
		baseline: baseline,
		locks:    newKeyedMutex(),
	}
}

func (m *Manager) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock := m.locks.lock(sessionID)

	locker, ok := m.store.(Locker)
	if !ok {
		return unlock, nil
	}

	unlockStore, err := locker.Lock(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		unlockStore()
		unlock()
	}, nil
}

// Update loads the session state (or the baseline), applies fn and stores the
// result. An empty sessionID runs fn on the baseline and stores nothing. When fn
// fails the stored state is left as it was. fn is not called when the lock or
// the load fails.
func (m *Manager) Update(ctx context.Context, sessionID string, fn UpdateFunc) error {
	if sessionID == "" {
		_, err := fn(m.baseline)
		return err
	}

	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	prev, ok, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		prev = m.baseline
	}

	next, err := fn(prev)
	if err != nil {
		return err
	}
	return m.store.Save(ctx, sessionID, next)
}

// Reset forgets a session so its next frame starts from the baseline.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	unlock, err := m.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.store.Delete(ctx, sessionID)
}

func (m *Manager) Get(ctx context.Context, sessionID string) (scoring.AttentionState, bool, error) {
	return m.store.Load(ctx, sessionID)
}

package translationconfig

import (
	"context"
	"sync"
)

// MemoryRepository holds settings in process memory. Zero value is not
// usable; construct with NewMemoryRepository.
type MemoryRepository struct {
	mu      sync.RWMutex
	current *Settings
	hub     *watcherHub
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{hub: newWatcherHub()}
}

func (r *MemoryRepository) Get(context.Context) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Settings{}, ErrSettingsNotFound
	}
	return *r.current, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, settings Settings) (Settings, error) {
	r.mu.Lock()
	var previous *Settings
	if r.current != nil {
		copied := *r.current
		previous = &copied
	}
	stored := settings
	r.current = &stored
	r.mu.Unlock()

	switch {
	case previous == nil:
		r.hub.publish(newChangeEvent(ChangeCreated, settings))
	case !equalSettings(*previous, settings):
		r.hub.publish(newChangeEvent(ChangeUpdated, settings))
	}
	return settings, nil
}

func (r *MemoryRepository) Delete(context.Context) error {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return ErrSettingsNotFound
	}
	r.current = nil
	r.mu.Unlock()

	r.hub.publish(newChangeEvent(ChangeDeleted, Settings{}))
	return nil
}

func (r *MemoryRepository) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	return r.hub.watch(ctx), nil
}

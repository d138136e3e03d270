package translationconfig

import "sync"

// State provides a concurrency-safe view of the active translation settings.
type State struct {
	mu       sync.RWMutex
	settings Settings
}

// NewState constructs a new state seeded with settings.
func NewState(settings Settings) *State {
	st := &State{}
	st.Apply(settings)
	return st
}

// Enabled reports whether translations are enabled globally.
func (s *State) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Enabled
}

// DefaultTemplateID returns the vendor project template used when a request
// does not name one.
func (s *State) DefaultTemplateID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.DefaultTemplateID
}

// DueDateLeadDays returns the default lead time applied to new vendor
// projects.
func (s *State) DueDateLeadDays() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.DueDateLeadDays
}

// Translatable reports whether a document type may be translated. An empty
// type list means every type is translatable.
func (s *State) Translatable(docType string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.settings.TranslatableTypes) == 0 {
		return true
	}
	for _, t := range s.settings.TranslatableTypes {
		if t == docType {
			return true
		}
	}
	return false
}

// Apply replaces the active settings.
func (s *State) Apply(settings Settings) {
	if s == nil {
		return
	}
	copied := settings
	copied.TranslatableTypes = append([]string(nil), settings.TranslatableTypes...)
	s.mu.Lock()
	s.settings = copied
	s.mu.Unlock()
}

// Snapshot returns a copy of the active settings.
func (s *State) Snapshot() Settings {
	if s == nil {
		return Settings{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := s.settings
	copied.TranslatableTypes = append([]string(nil), s.settings.TranslatableTypes...)
	return copied
}

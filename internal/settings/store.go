package settings

import "sync"

// Store holds the single active Settings value. Apply overwrites it in place;
// no history is kept.
type Store struct {
	mu      sync.RWMutex
	current Settings
}

// NewStore seeds the store with initial, which must already be valid.
func NewStore(initial Settings) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Store{current: initial}, nil
}

// Apply validates next and makes it the active value. The store is left
// unchanged when validation fails.
func (s *Store) Apply(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// Current returns a copy of the active value.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

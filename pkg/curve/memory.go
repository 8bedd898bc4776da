package curve

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps curves in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	curves map[string]*Curve
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{curves: make(map[string]*Curve), now: time.Now}
}

// Create stores a new curve.
func (s *MemoryStore) Create(x, y []float64, attributes map[string]any) (Handle, error) {
	c, err := newCurve(x, y, attributes, s.now())
	if err != nil {
		return Handle{}, err
	}

	s.mu.Lock()
	s.curves[c.ID] = c
	s.mu.Unlock()
	return c.Handle(), nil
}

// Load returns a copy of the curve with the given ID.
func (s *MemoryStore) Load(id string) (*Curve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.curves[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *c
	cp.X = slices.Clone(c.X)
	cp.Y = slices.Clone(c.Y)
	cp.Attributes = c.Handle().Attributes
	return &cp, nil
}

// List returns all curves, oldest first.
func (s *MemoryStore) List() []Handle {
	s.mu.RLock()
	hs := make([]Handle, 0, len(s.curves))
	for _, c := range s.curves {
		hs = append(hs, c.Handle())
	}
	s.mu.RUnlock()

	sortByCreated(hs)
	return hs
}

// Delete removes a curve.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.curves[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.curves, id)
	return nil
}

// Compile-time interface satisfaction check.
var _ Sink = (*MemoryStore)(nil)

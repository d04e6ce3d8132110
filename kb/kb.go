package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/sar-sensor-model/model"
)

var (
	ErrProductExists   = errors.New("product already exists")
	ErrProductNotFound = errors.New("product not found")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventProductAdded EventType = iota
	EventProductUpdated
)

// Event is emitted to subscribers when a product is added or updated.
// Metadata is a copy owned by the subscriber.
type Event struct {
	Type      EventType
	ProductID string
	Metadata  *model.ImageMetadata
}

// ProductStore is an in-memory, thread-safe store of product metadata keyed
// by product ID.
type ProductStore struct {
	mu sync.RWMutex

	products map[string]*model.ImageMetadata

	subs   map[int]func(Event)
	nextID int
}

// NewProductStore constructs an empty store.
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]*model.ImageMetadata),
		subs:     make(map[int]func(Event)),
	}
}

// AddProduct stores a copy of imd under id.
func (s *ProductStore) AddProduct(id string, imd *model.ImageMetadata) error {
	if imd == nil {
		return fmt.Errorf("AddProduct %q: metadata is nil", id)
	}

	s.mu.Lock()
	if _, exists := s.products[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrProductExists, id)
	}
	s.products[id] = imd.Clone()
	event := Event{Type: EventProductAdded, ProductID: id}
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()

	s.notify(subs, event, imd)
	return nil
}

// GetProduct returns a copy of the metadata stored under id.
func (s *ProductStore) GetProduct(id string) (*model.ImageMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	imd, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, id)
	}
	return imd.Clone(), nil
}

// ListProductIDs returns the stored product IDs in sorted order.
func (s *ProductStore) ListProductIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateProduct applies fn to the metadata stored under id and notifies
// subscribers. A sensor model's UpdateImageMetadata can be passed directly.
func (s *ProductStore) UpdateProduct(id string, fn func(*model.ImageMetadata)) error {
	s.mu.Lock()
	imd, ok := s.products[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrProductNotFound, id)
	}
	fn(imd)
	updated := imd.Clone()
	event := Event{Type: EventProductUpdated, ProductID: id}
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	s.notify(subs, event, updated)
	return nil
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *ProductStore) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *ProductStore) snapshotSubsLocked() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	return subs
}

func (s *ProductStore) notify(subs []func(Event), event Event, imd *model.ImageMetadata) {
	for _, sub := range subs {
		event.Metadata = imd.Clone()
		sub(event)
	}
}

package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/money"
)

// ErrNotFound is returned when no listing exists for the given id.
var ErrNotFound = errors.New("listing not found")

// Snapshot is the listing state used to price a transaction.
type Snapshot struct {
	ID                                     uuid.UUID          `json:"id"`
	Title                                  string             `json:"title"`
	Price                                  money.Money        `json:"price"`
	UnitType                               lineitems.UnitType `json:"unitType"`
	ShippingPriceInSubunitsOneItem         *int64             `json:"shippingPriceInSubunitsOneItem,omitempty"`
	ShippingPriceInSubunitsAdditionalItems *int64             `json:"shippingPriceInSubunitsAdditionalItems,omitempty"`
	UpdatedAt                              time.Time          `json:"updatedAt"`
}

// PriceInfo maps the snapshot to the pricing engine input. Shipping prices
// are stored in subunits of the listing currency.
func (s Snapshot) PriceInfo() lineitems.ListingPriceInfo {
	info := lineitems.ListingPriceInfo{
		UnitPrice: s.Price,
		UnitType:  s.UnitType,
	}
	if s.ShippingPriceInSubunitsOneItem != nil {
		m := money.Money{Amount: *s.ShippingPriceInSubunitsOneItem, Currency: s.Price.Currency}
		info.ShippingPriceOneItem = &m
	}
	if s.ShippingPriceInSubunitsAdditionalItems != nil {
		m := money.Money{Amount: *s.ShippingPriceInSubunitsAdditionalItems, Currency: s.Price.Currency}
		info.ShippingPriceAdditionalItems = &m
	}
	return info
}

// Store loads listing snapshots.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Snapshot, error)
}

// MemoryStore is an in-process Store used by tests and local tooling.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]Snapshot
}

// NewMemoryStore returns a store seeded with the given snapshots.
func NewMemoryStore(snapshots ...Snapshot) *MemoryStore {
	s := &MemoryStore{listings: make(map[uuid.UUID]Snapshot, len(snapshots))}
	for _, snap := range snapshots {
		s.listings[snap.ID] = snap
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.listings[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// Put stores or replaces a snapshot.
func (s *MemoryStore) Put(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[snap.ID] = snap
}

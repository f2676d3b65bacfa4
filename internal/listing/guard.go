package listing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-market/internal/resilience"
)

// ErrUnavailable is returned while the listing database breaker is open.
var ErrUnavailable = errors.New("listing store unavailable")

// GuardedStore fails fast when Next keeps failing. Missing listings do not
// count as failures.
type GuardedStore struct {
	Next    Store
	Breaker *resilience.Breaker
}

// NewBreaker returns a breaker tuned for listing lookups.
func NewBreaker(settings resilience.Settings) *resilience.Breaker {
	if settings.Target == "" {
		settings.Target = "listings"
	}
	settings.IsFailure = func(err error) bool {
		return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
	}
	return resilience.NewBreaker(settings)
}

// Get implements Store.
func (g GuardedStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	if g.Breaker == nil {
		return g.Next.Get(ctx, id)
	}
	var snap Snapshot
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = g.Next.Get(ctx, id)
		return err
	})
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return Snapshot{}, errors.Join(ErrUnavailable, err)
	}
	return snap, err
}

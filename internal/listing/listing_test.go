package listing_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
	"github.com/noah-isme/backend-market/internal/resilience"
)

func int64Ptr(v int64) *int64 { return &v }

func fixture() listing.Snapshot {
	return listing.Snapshot{
		ID:                                     uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"),
		Title:                                  "Ceramic mug",
		Price:                                  money.Must(1000, "EUR"),
		UnitType:                               lineitems.UnitItem,
		ShippingPriceInSubunitsOneItem:         int64Ptr(500),
		ShippingPriceInSubunitsAdditionalItems: int64Ptr(100),
		UpdatedAt:                              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPriceInfoUsesListingCurrency(t *testing.T) {
	info := fixture().PriceInfo()
	require.Equal(t, lineitems.UnitItem, info.UnitType)
	require.Equal(t, money.Must(500, "EUR"), *info.ShippingPriceOneItem)
	require.Equal(t, money.Must(100, "EUR"), *info.ShippingPriceAdditionalItems)

	snap := fixture()
	snap.ShippingPriceInSubunitsOneItem = nil
	snap.ShippingPriceInSubunitsAdditionalItems = nil
	info = snap.PriceInfo()
	require.Nil(t, info.ShippingPriceOneItem)
	require.Nil(t, info.ShippingPriceAdditionalItems)
}

func TestMemoryStore(t *testing.T) {
	store := listing.NewMemoryStore(fixture())
	got, err := store.Get(context.Background(), fixture().ID)
	require.NoError(t, err)
	require.Equal(t, "Ceramic mug", got.Title)

	_, err = store.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, listing.ErrNotFound)
}

type countingStore struct {
	next  listing.Store
	calls atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, id uuid.UUID) (listing.Snapshot, error) {
	c.calls.Add(1)
	return c.next.Get(ctx, id)
}

func TestCachedStoreReadsThroughOnce(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	backing := &countingStore{next: listing.NewMemoryStore(fixture())}
	cached := &listing.CachedStore{Next: backing, Client: client, TTL: time.Minute, Logger: zerolog.Nop()}
	ctx := context.Background()

	first, err := cached.Get(ctx, fixture().ID)
	require.NoError(t, err)
	second, err := cached.Get(ctx, fixture().ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), backing.calls.Load())
	require.True(t, mr.Exists("listing:snapshot:"+fixture().ID.String()))

	require.NoError(t, cached.Invalidate(ctx, fixture().ID))
	_, err = cached.Get(ctx, fixture().ID)
	require.NoError(t, err)
	require.Equal(t, int32(2), backing.calls.Load())

	_, err = cached.Get(ctx, uuid.New())
	require.ErrorIs(t, err, listing.ErrNotFound)
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	mr.Close()

	cached := &listing.CachedStore{Next: listing.NewMemoryStore(fixture()), Client: client, TTL: time.Minute, Logger: zerolog.Nop()}
	got, err := cached.Get(context.Background(), fixture().ID)
	require.NoError(t, err)
	require.Equal(t, fixture().ID, got.ID)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = r.values[i].(string)
		case *int64:
			*ptr = r.values[i].(int64)
		case **int64:
			if v, ok := r.values[i].(int64); ok {
				*ptr = &v
			}
		case *time.Time:
			*ptr = r.values[i].(time.Time)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

type fakeDB struct {
	row      fakeRow
	lastArgs []any
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.lastArgs = args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.lastArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresStoreGet(t *testing.T) {
	updated := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{"Cabin", int64(9000), "USD", "night", nil, nil, updated}}}
	store := listing.PostgresStore{DB: db}
	id := uuid.New()

	snap, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, snap.ID)
	require.Equal(t, money.Must(9000, "USD"), snap.Price)
	require.Equal(t, lineitems.UnitNight, snap.UnitType)
	require.Nil(t, snap.ShippingPriceInSubunitsOneItem)
	require.Equal(t, updated, snap.UpdatedAt)
	require.Equal(t, []any{id}, db.lastArgs)
}

func TestPostgresStoreNotFound(t *testing.T) {
	store := listing.PostgresStore{DB: &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}}
	_, err := store.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, listing.ErrNotFound)
}

func TestPostgresStoreUpsert(t *testing.T) {
	db := &fakeDB{}
	store := listing.PostgresStore{DB: db}
	snap := fixture()
	require.NoError(t, store.Upsert(context.Background(), snap))
	require.Equal(t, snap.ID, db.lastArgs[0])
	require.Equal(t, "item", db.lastArgs[4])
}

func TestMigrationURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/market?sslmode=disable", listing.MigrationURL("postgres://u:p@localhost:5432/market?sslmode=disable"))
	require.Equal(t, "pgx5://localhost/market", listing.MigrationURL("postgresql://localhost/market"))
	require.Equal(t, "pgx5://localhost/market", listing.MigrationURL("pgx5://localhost/market"))
}

type brokenStore struct{ calls atomic.Int32 }

func (b *brokenStore) Get(context.Context, uuid.UUID) (listing.Snapshot, error) {
	b.calls.Add(1)
	return listing.Snapshot{}, errors.New("connection refused")
}

func TestGuardedStoreOpensOnFailures(t *testing.T) {
	backing := &brokenStore{}
	guarded := listing.GuardedStore{
		Next:    backing,
		Breaker: listing.NewBreaker(resilience.Settings{MinRequests: 2, OpenFor: time.Minute}),
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := guarded.Get(ctx, fixture().ID)
		require.Error(t, err)
		require.NotErrorIs(t, err, listing.ErrUnavailable)
	}

	_, err := guarded.Get(ctx, fixture().ID)
	require.ErrorIs(t, err, listing.ErrUnavailable)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, int32(2), backing.calls.Load())
}

func TestGuardedStoreIgnoresNotFound(t *testing.T) {
	guarded := listing.GuardedStore{
		Next:    listing.NewMemoryStore(fixture()),
		Breaker: listing.NewBreaker(resilience.Settings{MinRequests: 1}),
	}
	for i := 0; i < 3; i++ {
		_, err := guarded.Get(context.Background(), uuid.New())
		require.ErrorIs(t, err, listing.ErrNotFound)
	}
	got, err := guarded.Get(context.Background(), fixture().ID)
	require.NoError(t, err)
	require.Equal(t, fixture().Title, got.Title)
	require.Equal(t, resilience.Closed, guarded.Breaker.State())
}

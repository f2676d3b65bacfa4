package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-market/internal/config"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/listing"
	"github.com/noah-isme/backend-market/internal/money"
)

func int64Ptr(v int64) *int64 { return &v }

// fixtures covers every unit type the engine prices.
var fixtures = []listing.Snapshot{
	{
		ID:       uuid.MustParse("7a1d3c52-0c7b-4a8e-9f3e-000000000001"),
		Title:    "Lakeside sauna, per day",
		Price:    money.Money{Amount: 8000, Currency: "EUR"},
		UnitType: lineitems.UnitDay,
	},
	{
		ID:       uuid.MustParse("7a1d3c52-0c7b-4a8e-9f3e-000000000002"),
		Title:    "Forest cabin, per night",
		Price:    money.Money{Amount: 12000, Currency: "EUR"},
		UnitType: lineitems.UnitNight,
	},
	{
		ID:       uuid.MustParse("7a1d3c52-0c7b-4a8e-9f3e-000000000003"),
		Title:    "Rowing boat, per hour",
		Price:    money.Money{Amount: 1500, Currency: "EUR"},
		UnitType: lineitems.UnitHour,
	},
	{
		ID:                                     uuid.MustParse("7a1d3c52-0c7b-4a8e-9f3e-000000000004"),
		Title:                                  "Birch wood paddle",
		Price:                                  money.Money{Amount: 1000, Currency: "EUR"},
		UnitType:                               lineitems.UnitItem,
		ShippingPriceInSubunitsOneItem:         int64Ptr(500),
		ShippingPriceInSubunitsAdditionalItems: int64Ptr(200),
	},
}

func main() {
	migrateFirst := flag.Bool("migrate", true, "apply listing migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *migrateFirst {
		if err := listing.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	cache := &listing.CachedStore{}
	if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
		client := redis.NewClient(opts)
		defer client.Close()
		cache.Client = client
	} else {
		log.Printf("skip cache invalidation: %v", err)
	}

	store := listing.PostgresStore{DB: pool}
	for _, snap := range fixtures {
		if err := store.Upsert(ctx, snap); err != nil {
			log.Fatalf("seed %s: %v", snap.Title, err)
		}
		if err := cache.Invalidate(ctx, snap.ID); err != nil {
			log.Printf("invalidate %s: %v", snap.ID, err)
		}
		log.Printf("seeded %s listing %s (%s)", snap.UnitType, snap.ID, snap.Title)
	}
	log.Printf("seeded %d listings", len(fixtures))
}

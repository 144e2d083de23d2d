// Package testutil wires real gorm/sqlite and miniredis dependencies for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradedesk-backend/internal/domain"
	"tradedesk-backend/internal/events"
	"tradedesk-backend/internal/infrastructure/database"
	"tradedesk-backend/internal/infrastructure/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated sqlite database in the test's temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:" + filepath.Join(t.TempDir(), "tradedesk_test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewStore returns a store over a fresh database and its bus.
func NewStore(t *testing.T) (*store.Store, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	return store.New(NewDB(t), bus), bus
}

// NewRedis starts a miniredis server and a client connected to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func Ptr[T any](v T) *T {
	return &v
}

// Recorder collects every event published on a bus.
type Recorder struct {
	Events []events.Event
}

func (r *Recorder) Count(eventType, collection string) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == eventType && (collection == "" || e.Collection == collection) {
			n++
		}
	}
	return n
}

// Record subscribes a Recorder to the given event types.
func Record(bus *events.Bus, types ...string) *Recorder {
	rec := &Recorder{}
	for _, typ := range types {
		bus.Subscribe(typ, func(_ context.Context, e events.Event) error {
			rec.Events = append(rec.Events, e)
			return nil
		})
	}
	return rec
}

// SeedContract inserts a contract directly, bypassing service validation.
func SeedContract(t *testing.T, s *store.Store, c domain.Contract) *domain.Contract {
	t.Helper()
	if c.Status == "" {
		c.Status = domain.ContractStatusOpened
	}
	if c.ContractDate.IsZero() {
		c.ContractDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	require.NoError(t, s.Contracts().Create(context.Background(), &c))
	return &c
}

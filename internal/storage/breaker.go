// -------------------------------------------------------------------------------
// Breaker - Record Store Circuit Breaker
//
// Project: KCloud / Author: Alex Freidah
//
// Circuit breaker wrapper over the song record store. Consecutive
// connection-class failures trip the breaker open; while open, calls are
// rejected immediately with a connection fault instead of waiting on a dead
// database. After the open timeout a single probe call is allowed through
// (half-open); success closes the breaker, failure re-opens it. Only
// DBConnection faults count against the breaker - a missing document or a
// slow query is not evidence the database is down.
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// -------------------------------------------------------------------------
// STATES
// -------------------------------------------------------------------------

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// -------------------------------------------------------------------------
// BREAKER STORE
// -------------------------------------------------------------------------

// BreakerStore decorates a SongStore with circuit breaking. It satisfies
// SongStore itself, so callers are unaware of the wrapping.
type BreakerStore struct {
	inner SongStore

	mu          sync.Mutex
	state       breakerState
	failures    int
	openedAt    time.Time
	threshold   int
	openTimeout time.Duration
}

var _ SongStore = (*BreakerStore)(nil)

// NewBreakerStore wraps a SongStore with breaker behavior from config.
func NewBreakerStore(inner SongStore, cfg config.CircuitBreakerConfig) *BreakerStore {
	return &BreakerStore{
		inner:       inner,
		state:       stateClosed,
		threshold:   cfg.FailureThreshold,
		openTimeout: cfg.OpenTimeout,
	}
}

// IsHealthy reports whether calls are currently allowed through. Used by the
// health endpoint and the request gate.
func (b *BreakerStore) IsHealthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen && time.Since(b.openedAt) >= b.openTimeout {
		return true // next call will be the half-open probe
	}
	return b.state != stateOpen
}

// preCheck decides whether the call may proceed. While open, it rejects until
// the open timeout elapses, then admits one probe in half-open state.
func (b *BreakerStore) preCheck() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if time.Since(b.openedAt) < b.openTimeout {
			return faults.New(faults.DBConnection, "error connecting to the database")
		}
		b.transition(stateHalfOpen)
	}
	return nil
}

// postCheck records the call outcome. Connection-class failures count toward
// the trip threshold; anything else resets the failure streak.
func (b *BreakerStore) postCheck(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && faults.IsKind(err, faults.DBConnection) {
		b.failures++
		if b.state == stateHalfOpen || b.failures >= b.threshold {
			b.openedAt = time.Now()
			b.transition(stateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == stateHalfOpen {
		b.transition(stateClosed)
	}
}

// transition moves states and records the change. Callers hold the mutex.
func (b *BreakerStore) transition(to breakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	telemetry.CircuitBreakerState.Set(float64(to))
	telemetry.CircuitBreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
	slog.Warn("record store circuit breaker state change",
		"from", from.String(),
		"to", to.String(),
		"failures", b.failures,
	)
}

// -------------------------------------------------------------------------
// WRAPPED OPERATIONS
// -------------------------------------------------------------------------

func (b *BreakerStore) Find(ctx context.Context, filter bson.M, projection bson.D) ([]Song, error) {
	if err := b.preCheck(); err != nil {
		return nil, err
	}
	songs, err := b.inner.Find(ctx, filter, projection)
	b.postCheck(err)
	return songs, err
}

func (b *BreakerStore) FindByID(ctx context.Context, id primitive.ObjectID, projection bson.D) (*Song, error) {
	if err := b.preCheck(); err != nil {
		return nil, err
	}
	song, err := b.inner.FindByID(ctx, id, projection)
	b.postCheck(err)
	return song, err
}

func (b *BreakerStore) Insert(ctx context.Context, song *Song) (primitive.ObjectID, error) {
	if err := b.preCheck(); err != nil {
		return primitive.NilObjectID, err
	}
	id, err := b.inner.Insert(ctx, song)
	b.postCheck(err)
	return id, err
}

func (b *BreakerStore) FindByIDAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M, projection bson.D) (*Song, error) {
	if err := b.preCheck(); err != nil {
		return nil, err
	}
	song, err := b.inner.FindByIDAndUpdate(ctx, id, update, projection)
	b.postCheck(err)
	return song, err
}

func (b *BreakerStore) FindByIDAndDelete(ctx context.Context, id primitive.ObjectID) (*Song, error) {
	if err := b.preCheck(); err != nil {
		return nil, err
	}
	song, err := b.inner.FindByIDAndDelete(ctx, id)
	b.postCheck(err)
	return song, err
}

func (b *BreakerStore) Ping(ctx context.Context) error {
	if err := b.preCheck(); err != nil {
		return err
	}
	err := b.inner.Ping(ctx)
	b.postCheck(err)
	return err
}

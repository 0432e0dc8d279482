// -------------------------------------------------------------------------------
// Events - Song Lifecycle Event Publisher
//
// Project: KCloud / Author: Alex Freidah
//
// NATS publisher announcing song lifecycle changes on <prefix>.created,
// <prefix>.updated and <prefix>.deleted. Publishing is fire-and-forget:
// subscribers (search indexers, playlist services) tolerate missed events,
// so a broker failure is logged and never fails the originating request.
// -------------------------------------------------------------------------------

package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/storage"
)

// SongEvent is the payload published for every lifecycle change.
type SongEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AccountID string `json:"accountId,omitempty"`
}

// Publisher publishes song lifecycle events to NATS.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

var _ storage.EventPublisher = (*Publisher)(nil)

// New connects to the broker. Reconnection is handled by the client; a
// publish during an outage is buffered or dropped by the client, never
// surfaced to the request path.
func New(cfg config.EventsConfig) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("kcloud-music-api"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

// SongCreated publishes a <prefix>.created event.
func (p *Publisher) SongCreated(ctx context.Context, song *storage.Song) {
	p.publish(ctx, "created", song)
}

// SongUpdated publishes a <prefix>.updated event.
func (p *Publisher) SongUpdated(ctx context.Context, song *storage.Song) {
	p.publish(ctx, "updated", song)
}

// SongDeleted publishes a <prefix>.deleted event.
func (p *Publisher) SongDeleted(ctx context.Context, song *storage.Song) {
	p.publish(ctx, "deleted", song)
}

func (p *Publisher) publish(_ context.Context, verb string, song *storage.Song) {
	subject := p.prefix + "." + verb

	payload, err := json.Marshal(SongEvent{
		ID:        song.ID.Hex(),
		Name:      song.Name,
		AccountID: song.AccountID,
	})
	if err != nil {
		slog.Warn("event payload marshal failed", "subject", subject, "error", err)
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

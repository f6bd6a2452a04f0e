// Package events carries the audit events emitted after durable writes.
// Delivery is best effort: a failed publish is logged by the caller and
// never undoes the write it describes.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeStockMovement = "stock.movement"
	TypeLedgerEntry   = "ledger.entry_recorded"
)

// Publisher ships one event. key groups events that must stay ordered.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// DefaultTimeout bounds one publish made while a ledger or stock lock is
// held.
const DefaultTimeout = 3 * time.Second

type bounded struct {
	next    Publisher
	timeout time.Duration
}

// WithTimeout gives every publish its own deadline. The caller's cancellation
// is not inherited, so a caller running out of time does not drop the event
// and a stalled broker cannot hold a caller longer than timeout.
func WithTimeout(p Publisher, timeout time.Duration) Publisher {
	if _, ok := p.(Noop); ok {
		return p
	}
	return bounded{next: p, timeout: timeout}
}

func (b bounded) Publish(ctx context.Context, key string, event any) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	return b.next.Publish(ctx, key, event)
}

// StockMovement mirrors one stock_movements row plus the resulting balance.
type StockMovement struct {
	Type       string    `json:"type"`
	MovementID string    `json:"movement_id"`
	GuildID    int64     `json:"guild_id,string"`
	AdminID    int64     `json:"admin_id,string"`
	Kind       string    `json:"kind"`
	Amount     int64     `json:"amount"`
	Balance    int64     `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LedgerEntryRecorded is emitted once a journal line has been posted.
type LedgerEntryRecorded struct {
	Type       string          `json:"type"`
	GuildID    int64           `json:"guild_id,string"`
	MessageID  string          `json:"message_id"`
	ActorID    string          `json:"actor_id"`
	Kind       string          `json:"kind"`
	Quantity   decimal.Decimal `json:"quantity"`
	Rate       decimal.Decimal `json:"rate"`
	Value      decimal.Decimal `json:"value"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Package ledger rebuilds buy/sell totals from the journal channel. The
// journal is the only source of truth: entries are parsed on every replay and
// never stored anywhere else.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

// ParseKind accepts the tag tokens, including the legacy French ones still
// present in old journals.
func ParseKind(token string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "buy", "achat":
		return KindBuy, true
	case "sell", "vente":
		return KindSell, true
	}
	return "", false
}

// Entry is one parsed journal line.
type Entry struct {
	Kind      Kind
	ActorName string
	// ActorID is empty for entries recovered from the human-readable line.
	ActorID  string
	Quantity decimal.Decimal // millions of kamas
	Rate     decimal.Decimal // euros per million
}

// Value is Quantity × Rate rounded to cents.
func (e Entry) Value() decimal.Decimal {
	return e.Quantity.Mul(e.Rate).Round(2)
}

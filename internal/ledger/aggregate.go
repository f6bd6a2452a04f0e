package ledger

import "github.com/shopspring/decimal"

type Outcome int

const (
	Balanced Outcome = iota
	Surplus
	Deficit
)

// balanceTolerance absorbs rounding left over from many per-entry roundings.
var balanceTolerance = decimal.New(5, -3)

// Report is the folded view of a journal.
type Report struct {
	Buys      []Entry
	Sells     []Entry
	BuyTotal  decimal.Decimal
	SellTotal decimal.Decimal
	Net       decimal.Decimal // SellTotal - BuyTotal
}

// Aggregate folds entries into totals. It is pure and order-independent for
// the totals; the per-kind slices keep the input order for display.
func Aggregate(entries []Entry) Report {
	r := Report{
		BuyTotal:  decimal.Zero,
		SellTotal: decimal.Zero,
	}
	for _, e := range entries {
		switch e.Kind {
		case KindBuy:
			r.Buys = append(r.Buys, e)
			r.BuyTotal = r.BuyTotal.Add(e.Value())
		case KindSell:
			r.Sells = append(r.Sells, e)
			r.SellTotal = r.SellTotal.Add(e.Value())
		}
	}
	r.Net = r.SellTotal.Sub(r.BuyTotal).Round(2)
	return r
}

func (r Report) Outcome() Outcome {
	switch {
	case r.Net.Abs().LessThanOrEqual(balanceTolerance):
		return Balanced
	case r.Net.IsPositive():
		return Surplus
	default:
		return Deficit
	}
}

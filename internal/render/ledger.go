package render

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kamas-trade/kamasbot/internal/ledger"
)

const (
	ledgerTitle = "📊 Bilan cumulatif — Achats & Ventes"
	ledgerIntro = "Données cumulatives issues du journal. Montants en millions (M). Taux en €/M."

	emojiTotals = "🧮"
	emojiProfit = "📈"
	emojiLoss   = "📉"
	emojiEven   = "⚖️"

	tableHeader = "Admin           | M (millions) | Taux €/M | €\n"
	tableRule   = "----------------+--------------+----------+---------\n"
	emptyRow    = "(aucune entrée)\n"
)

// Ledger renders the cumulative buy/sell report.
func Ledger(r ledger.Report, at time.Time, loc *time.Location) Document {
	buys := Section(ledger.EmojiBuy, "ACHATS", r.Buys, r.BuyTotal)
	sells := Section(ledger.EmojiSell, "VENTES", r.Sells, r.SellTotal)

	return Document{
		Title:       ledgerTitle,
		Description: ledgerIntro,
		Color:       ColorOrange,
		Fields: []Field{
			{Name: "Achats", Value: Clamp(buys, FieldLimit)},
			{Name: "Ventes", Value: Clamp(sells, FieldLimit)},
			{Name: "\u200b", Value: Balance(r)},
		},
		Footer: "Dernière mise à jour : " + Stamp(at, loc),
	}
}

// Section renders one monospace table: a row per entry, then the total line.
func Section(emoji, title string, entries []ledger.Entry, total decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(emoji + " " + title + "\n")
	b.WriteString(tableHeader)
	b.WriteString(tableRule)
	if len(entries) == 0 {
		b.WriteString(emptyRow)
	}
	for _, e := range entries {
		actor := e.ActorName
		if actor == "" {
			actor = "—"
		}
		b.WriteString(padRight(actor, 15))
		b.WriteString(" | ")
		b.WriteString(padLeft(ledger.FormatAmount(e.Quantity), 12))
		b.WriteString(" | ")
		b.WriteString(padLeft(ledger.FormatAmount(e.Rate), 8))
		b.WriteString(" | ")
		b.WriteString(padLeft(ledger.FormatAmount(e.Value()), 7))
		b.WriteString("\n")
	}
	b.WriteString(emojiTotals + " Total " + strings.ToLower(title) + " (€)" + spaces(23) + "= " + ledger.FormatAmount(total) + "\n")
	b.WriteString("```")
	return b.String()
}

// Balance is the bold footer line stating the net result.
func Balance(r ledger.Report) string {
	switch r.Outcome() {
	case ledger.Surplus:
		return "**" + emojiProfit + " Bénéfice net = +" + ledger.FormatAmount(r.Net) + " €**"
	case ledger.Deficit:
		return "**" + emojiLoss + " Perte nette = −" + ledger.FormatAmount(r.Net.Abs()) + " €**"
	default:
		return "**" + emojiEven + " Équilibre = 0,00 €**"
	}
}

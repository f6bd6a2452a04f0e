package render

import (
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamas-trade/kamasbot/internal/ledger"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

var stamp = time.Date(2025, 3, 1, 11, 5, 0, 0, time.UTC)

func scenarioReport(t *testing.T) ledger.Report {
	t.Helper()
	var entries []ledger.Entry
	for _, c := range []string{"[[DATA|buy|100|5.00|111112222]]", "[[DATA|sell|40|6,50|333334444]]"} {
		e, ok := ledger.ParseEntry(c)
		require.True(t, ok)
		entries = append(entries, e)
	}
	return ledger.Aggregate(entries)
}

func TestLedgerScenario(t *testing.T) {
	doc := Ledger(scenarioReport(t), stamp, paris(t))

	assert.Equal(t, "📊 Bilan cumulatif — Achats & Ventes", doc.Title)
	assert.Equal(t, ColorOrange, doc.Color)
	require.Len(t, doc.Fields, 3)
	assert.Equal(t, "Achats", doc.Fields[0].Name)
	assert.Equal(t, "Ventes", doc.Fields[1].Name)

	buyRow := "ID:111112222" + "   " + " | " + "      100,00" + " | " + "    5,00" + " | " + " 500,00" + "\n"
	assert.Contains(t, doc.Fields[0].Value, buyRow)
	assert.Contains(t, doc.Fields[0].Value, "🧮 Total achats (€)"+strings.Repeat(" ", 23)+"= 500,00\n")

	sellRow := "ID:333334444" + "   " + " | " + "       40,00" + " | " + "    6,50" + " | " + " 260,00" + "\n"
	assert.Contains(t, doc.Fields[1].Value, sellRow)
	assert.Contains(t, doc.Fields[1].Value, "= 260,00\n")

	assert.Equal(t, "**📉 Perte nette = −240,00 €**", doc.Fields[2].Value)
	assert.Equal(t, "Dernière mise à jour : 01/03/2025 12:05 (heure de Paris)", doc.Footer)
}

func TestLedgerIsDeterministic(t *testing.T) {
	r := scenarioReport(t)
	loc := paris(t)
	assert.Equal(t, Ledger(r, stamp, loc), Ledger(r, stamp, loc))
	assert.Equal(t, Ledger(r, stamp, loc).Embed(), Ledger(r, stamp, loc).Embed())
}

func TestLedgerEmpty(t *testing.T) {
	doc := Ledger(ledger.Aggregate(nil), stamp, paris(t))

	want := "```\n💰 ACHATS\n" + tableHeader + tableRule + "(aucune entrée)\n" +
		"🧮 Total achats (€)" + strings.Repeat(" ", 23) + "= 0,00\n```"
	assert.Equal(t, want, doc.Fields[0].Value)
	assert.Contains(t, doc.Fields[1].Value, "(aucune entrée)")
	assert.Equal(t, "**⚖️ Équilibre = 0,00 €**", doc.Fields[2].Value)
}

func TestBalanceSurplus(t *testing.T) {
	r := ledger.Report{Net: decimal.RequireFromString("1234.5")}
	assert.Equal(t, "**📈 Bénéfice net = +1 234,50 €**", Balance(r))
}

func TestSectionTruncatesActor(t *testing.T) {
	long := "Éloïse-Marguerite de la Tour"
	entries := []ledger.Entry{{
		Kind:      ledger.KindBuy,
		ActorName: long,
		Quantity:  decimal.NewFromInt(1),
		Rate:      decimal.NewFromInt(2),
	}}
	out := Section(ledger.EmojiBuy, "ACHATS", entries, decimal.NewFromInt(2))

	assert.Contains(t, out, "\n"+string([]rune(long)[:15])+" | ")
	assert.NotContains(t, out, long)
}

func TestLedgerClampsFields(t *testing.T) {
	var entries []ledger.Entry
	for i := 0; i < 100; i++ {
		entries = append(entries, ledger.Entry{
			Kind:      ledger.KindSell,
			ActorName: fmt.Sprintf("admin-%d", i),
			Quantity:  decimal.NewFromInt(int64(i + 1)),
			Rate:      decimal.NewFromInt(3),
		})
	}
	doc := Ledger(ledger.Aggregate(entries), stamp, paris(t))

	v := doc.Fields[1].Value
	assert.Equal(t, FieldLimit, utf8.RuneCountInString(v))
	assert.True(t, strings.HasSuffix(v, "…"))
	assert.Contains(t, doc.Fields[0].Value, "(aucune entrée)")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "abc", Clamp("abc", 3))
	assert.Equal(t, "ab…", Clamp("abcd", 3))
	assert.Equal(t, "éé…", Clamp("éééé", 3))
}

func TestStamp(t *testing.T) {
	summer := time.Date(2025, 7, 14, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, "14/07/2025 22:30 (heure de Paris)", Stamp(summer, paris(t)))
	assert.Equal(t, "14/07/2025 20:30 (heure UTC)", Stamp(summer, time.UTC))
}

func TestStockGlobal(t *testing.T) {
	doc := StockGlobal(5000, stamp, paris(t))
	assert.Equal(t, ColorGreen, doc.Color)
	assert.Contains(t, doc.Description, "**Stock disponible :** 5 000 kamas")
	assert.Contains(t, doc.Description, "01/03/2025 12:05 (heure de Paris)")

	assert.Equal(t, ColorRed, StockGlobal(0, stamp, paris(t)).Color)
}

func TestStockAdmin(t *testing.T) {
	admin := Admin{ID: "42424242", Name: "Alice", AvatarURL: "https://cdn.example/a.png"}
	doc := StockAdmin(admin, 12500000, stamp, paris(t))

	assert.Equal(t, "👤 𝗦𝗧𝗢𝗖𝗞 — Alice", doc.Title)
	assert.Contains(t, doc.Description, "gérées par <@42424242>) :** 12 500 000 kamas")
	assert.Equal(t, ColorBlue, doc.Color)

	e := doc.Embed()
	require.NotNil(t, e.Thumbnail)
	assert.Equal(t, admin.AvatarURL, e.Thumbnail.URL)
	assert.Nil(t, e.Footer)

	assert.Equal(t, "👤 𝗦𝗧𝗢𝗖𝗞 — ID:7", StockAdmin(Admin{ID: "7"}, 0, stamp, nil).Title)
}

func TestEmbed(t *testing.T) {
	e := Ledger(scenarioReport(t), stamp, paris(t)).Embed()
	require.Len(t, e.Fields, 3)
	assert.False(t, e.Fields[0].Inline)
	require.NotNil(t, e.Footer)
	assert.True(t, strings.HasPrefix(e.Footer.Text, "Dernière mise à jour : "))
	assert.Nil(t, e.Thumbnail)
}

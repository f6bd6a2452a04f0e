package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantOk    bool
		wantKind  Kind
		wantActor string
		wantID    string
		wantQty   string
		wantRate  string
	}{
		{
			name:      "tag with dot separator",
			content:   "[[DATA|buy|100|5.00|111112222]]",
			wantOk:    true,
			wantKind:  KindBuy,
			wantActor: "ID:111112222",
			wantID:    "111112222",
			wantQty:   "100",
			wantRate:  "5",
		},
		{
			name:      "tag with comma separator",
			content:   "[[DATA|sell|40|6,50|333334444]]",
			wantOk:    true,
			wantKind:  KindSell,
			wantActor: "ID:333334444",
			wantID:    "333334444",
			wantQty:   "40",
			wantRate:  "6.5",
		},
		{
			name:      "tag takes the name from the human line",
			content:   "💰 [Alice] a acheté 200,00 M au taux de 3,80 €/M — soit 760,00 €\n[[DATA|buy|200.0|3.8|123456789]]",
			wantOk:    true,
			wantKind:  KindBuy,
			wantActor: "Alice",
			wantID:    "123456789",
			wantQty:   "200",
			wantRate:  "3.8",
		},
		{
			name:      "tag wins over a disagreeing human line",
			content:   "⭐ [Bob] a vendu 1,00 M au taux de 1,00 €/M\n[[DATA|buy|7|2|123456789]]",
			wantOk:    true,
			wantKind:  KindBuy,
			wantActor: "Bob",
			wantID:    "123456789",
			wantQty:   "7",
			wantRate:  "2",
		},
		{
			name:      "legacy french kind token, any case",
			content:   "[[data|VENTE|12|3|98765]]",
			wantOk:    true,
			wantKind:  KindSell,
			wantActor: "ID:98765",
			wantID:    "98765",
			wantQty:   "12",
			wantRate:  "3",
		},
		{
			name:      "human fallback buy",
			content:   "💰 [Alice] a acheté 200,00 M au taux de 3,80 €/M — soit 760,00 €",
			wantOk:    true,
			wantKind:  KindBuy,
			wantActor: "Alice",
			wantQty:   "200",
			wantRate:  "3.8",
		},
		{
			name:      "human fallback with thousands separators",
			content:   "⭐ [Bob le Bricoleur] a vendu 1 234,50 M au taux de 4,00 €/M — soit 4 938,00 €",
			wantOk:    true,
			wantKind:  KindSell,
			wantActor: "Bob le Bricoleur",
			wantQty:   "1234.5",
			wantRate:  "4",
		},
		{
			name:      "human fallback without emoji",
			content:   "[Carol] a vendu 10 M au taux de 2.5 €/M",
			wantOk:    true,
			wantKind:  KindSell,
			wantActor: "Carol",
			wantQty:   "10",
			wantRate:  "2.5",
		},
		{
			name:     "parser is tolerant of signs",
			content:  "[[DATA|buy|-3|0|123456]]",
			wantOk:   true,
			wantKind: KindBuy,
			wantID:   "123456",
			wantQty:  "-3",
			wantRate: "0",
			// actor falls back to the id label
			wantActor: "ID:123456",
		},
		{name: "chatter", content: "salut tout le monde", wantOk: false},
		{name: "author id too short", content: "[[DATA|buy|1|1|1234]]", wantOk: false},
		{name: "unknown kind", content: "[[DATA|gift|1|1|123456]]", wantOk: false},
		{name: "empty", content: "", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseEntry(tt.content)
			require.Equal(t, tt.wantOk, ok)
			if !tt.wantOk {
				return
			}
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantActor, got.ActorName)
			assert.Equal(t, tt.wantID, got.ActorID)
			assertDecimal(t, tt.wantQty, got.Quantity)
			assertDecimal(t, tt.wantRate, got.Rate)
		})
	}
}

func TestTagRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		qty  string
		rate string
		id   string
	}{
		{KindBuy, "100", "5", "111112222"},
		{KindSell, "40", "6.5", "333334444"},
		{KindBuy, "0.25", "12.125", "12345"},
		{KindSell, "123456.789", "0.01", "987654321012345678"},
	}

	for _, c := range cases {
		for _, sep := range []string{".", ","} {
			tag := FormatTag(c.kind, dec(c.qty), dec(c.rate), c.id)
			tag = strings.ReplaceAll(tag, ".", sep)

			got, ok := ParseEntry(tag)
			require.Truef(t, ok, "tag %q did not parse", tag)
			assert.Equal(t, c.kind, got.Kind)
			assert.Equal(t, c.id, got.ActorID)
			assertDecimal(t, c.qty, got.Quantity)
			assertDecimal(t, c.rate, got.Rate)
		}
	}
}

func TestJournalLineRoundTrip(t *testing.T) {
	line := FormatJournalLine(KindSell, "Dame [Rouge]", dec("1500"), dec("3.75"))
	assert.Equal(t, "⭐ [Dame (Rouge)] a vendu 1 500,00 M au taux de 3,75 €/M — soit 5 625,00 €", line)

	got, ok := ParseEntry(line)
	require.True(t, ok)
	assert.Equal(t, KindSell, got.Kind)
	assert.Equal(t, "Dame (Rouge)", got.ActorName)
	assertDecimal(t, "1500", got.Quantity)
	assertDecimal(t, "3.75", got.Rate)
	assertDecimal(t, "5625", got.Value())
}

func TestValidateAmount(t *testing.T) {
	valid := map[string]string{
		"12":                   "12",
		"12.5":                 "12.5",
		"12,5":                 "12.5",
		"1 234,56":             "1234.56",
		" 3,80 ":               "3.8",
		"1\u202f000":           "1000",
		"12\u00a0500\u00a0000": "12500000",
	}
	for in, want := range valid {
		got, err := ValidateAmount(in)
		require.NoErrorf(t, err, "input %q", in)
		assertDecimal(t, want, got)
	}

	for _, in := range []string{"", "abc", "0", "0,00", "-3", "1,2,3"} {
		_, err := ValidateAmount(in)
		assert.Truef(t, errors.Is(err, ErrInvalidAmount), "input %q: got %v", in, err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":           "0,00",
		"5":           "5,00",
		"1234.5":      "1 234,50",
		"-240":        "-240,00",
		"1234567.891": "1 234 567,89",
		"999.999":     "1 000,00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(dec(in)), "input %s", in)
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", FormatInt(0, " "))
	assert.Equal(t, "999", FormatInt(999, " "))
	assert.Equal(t, "12 500 000", FormatInt(12500000, " "))
	assert.Equal(t, "1,000", FormatInt(1000, ","))
	assert.Equal(t, "-5 000", FormatInt(-5000, " "))
}

func TestParseKind(t *testing.T) {
	for token, want := range map[string]Kind{"buy": KindBuy, "BUY": KindBuy, "achat": KindBuy, "sell": KindSell, "Vente": KindSell} {
		got, ok := ParseKind(token)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParseKind("manual")
	assert.False(t, ok)
}

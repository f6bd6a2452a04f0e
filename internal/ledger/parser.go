package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

const (
	EmojiBuy  = "💰"
	EmojiSell = "⭐"
)

var (
	// [[DATA|buy|200|3.8|123456789]]
	tagPattern = regexp.MustCompile(`(?i)\[\[DATA\|(buy|sell|achat|vente)\|([-+]?\d+(?:[.,]\d+)?)\|([-+]?\d+(?:[.,]\d+)?)\|(\d{5,})\]\]`)

	// 💰 [Alice] a acheté 200,00 M au taux de 3,80 €/M — soit 760,00 €
	// Quantities may carry space thousands separators ("1 234,50").
	humanPattern = regexp.MustCompile(`(?im)^\s*(?:[^\w\s\[])?\s*\[([^\]]+)\]\s+a\s+(acheté|vendu)\s+([-+]?\d[\d \x{00A0}\x{202F}]*(?:[.,]\d+)?)\s*M\s+au\s+taux\s+de\s+([-+]?\d[\d \x{00A0}\x{202F}]*(?:[.,]\d+)?)\s*€/M`)

	spaceStripper = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")
)

// ParseDecimal accepts "12", "12.5", "12,5" and "1 234,56".
func ParseDecimal(value string) (decimal.Decimal, error) {
	v := spaceStripper.Replace(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, ",", ".")
	return decimal.NewFromString(v)
}

// ValidateAmount is the strict check applied before anything is written to
// the journal.
func ValidateAmount(value string) (decimal.Decimal, error) {
	d, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, value)
	}
	return d, nil
}

// ParseEntry turns a journal message into an entry. The machine tag wins
// over the human line; messages matching neither are not entries.
func ParseEntry(content string) (Entry, bool) {
	human := humanPattern.FindStringSubmatch(content)

	for _, line := range strings.Split(content, "\n") {
		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind, _ := ParseKind(m[1])
		qty, err := ParseDecimal(m[2])
		if err != nil {
			return Entry{}, false
		}
		rate, err := ParseDecimal(m[3])
		if err != nil {
			return Entry{}, false
		}
		name := ""
		if human != nil {
			name = strings.TrimSpace(human[1])
		}
		if name == "" {
			name = "ID:" + m[4]
		}
		return Entry{Kind: kind, ActorName: name, ActorID: m[4], Quantity: qty, Rate: rate}, true
	}

	if human == nil {
		return Entry{}, false
	}
	kind := KindSell
	if strings.EqualFold(human[2], "acheté") {
		kind = KindBuy
	}
	qty, err := ParseDecimal(human[3])
	if err != nil {
		return Entry{}, false
	}
	rate, err := ParseDecimal(human[4])
	if err != nil {
		return Entry{}, false
	}
	return Entry{Kind: kind, ActorName: strings.TrimSpace(human[1]), Quantity: qty, Rate: rate}, true
}

// FormatTag renders the machine-readable line appended to every journal
// message.
func FormatTag(kind Kind, quantity, rate decimal.Decimal, authorID string) string {
	return fmt.Sprintf("[[DATA|%s|%s|%s|%s]]", kind, quantity.String(), rate.String(), authorID)
}

// FormatJournalLine renders the human-readable line of a journal message.
func FormatJournalLine(kind Kind, actor string, quantity, rate decimal.Decimal) string {
	emoji, verb := EmojiBuy, "acheté"
	if kind == KindSell {
		emoji, verb = EmojiSell, "vendu"
	}
	actor = strings.NewReplacer("[", "(", "]", ")", "\n", " ").Replace(actor)
	value := quantity.Mul(rate).Round(2)
	return fmt.Sprintf("%s [%s] a %s %s M au taux de %s €/M — soit %s €",
		emoji, actor, verb, FormatAmount(quantity), FormatAmount(rate), FormatAmount(value))
}

// FormatAmount prints d with two decimals, a decimal comma and space
// thousands separators: 1234.5 -> "1 234,50".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(intPart, " ") + "," + frac
}

// FormatInt prints n with the given thousands separator.
func FormatInt(n int64, sep string) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + groupThousands(s[1:], sep)
	}
	return groupThousands(s, sep)
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

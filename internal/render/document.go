// Package render turns ledger reports and stock balances into fixed-layout
// embed documents. Every function here is pure: the timestamp and time zone
// are inputs, so the same state at the same instant renders identically.
package render

import (
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// FieldLimit is the per-field ceiling applied before a document is sent.
const FieldLimit = 1000

const (
	ColorOrange = 0xE67E22
	ColorGreen  = 0x2ECC71
	ColorRed    = 0xE74C3C
	ColorBlue   = 0x3498DB
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Document is the platform-neutral shape of a summary message.
type Document struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Thumbnail   string
}

// Embed converts the document into a discordgo embed.
func (d Document) Embed() *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       d.Title,
		Description: d.Description,
		Color:       d.Color,
	}
	for _, f := range d.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if d.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: d.Footer}
	}
	if d.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: d.Thumbnail}
	}
	return e
}

// Clamp cuts s to max runes, marking the cut with an ellipsis.
func Clamp(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// Stamp formats t in loc the way every summary states its last update.
func Stamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02/01/2006 15:04") + " (" + zoneLabel(loc) + ")"
}

func zoneLabel(loc *time.Location) string {
	if loc.String() == "Europe/Paris" {
		return "heure de Paris"
	}
	return "heure " + loc.String()
}

func padLeft(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return spaces(width-n) + s
}

// padRight truncates to width runes, dropping the overflow, then pads.
func padRight(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + spaces(width-len(r))
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

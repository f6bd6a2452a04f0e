package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/stock"
)

var errInvalidKamas = errors.New("invalid kamas amount")

func ParseGuildID(guildID string) int64 {
	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		logger.L().WithError(err).Warnf("Failed to parse guild ID '%s'", guildID)
		return 0
	}
	return id
}

// ParseKamas reads a whole, positive kamas amount typed by a human:
// "12 500 000", "12.500.000", "12,500,000" and "12500000" are all accepted.
// Amounts above stock.MaxBalance are rejected.
func ParseKamas(text string) (int64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '.', ',', '\'', '_':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	if s == "" || !allDigits(s) {
		return 0, fmt.Errorf("%w: %q", errInvalidKamas, text)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 || n > stock.MaxBalance {
		return 0, fmt.Errorf("%w: %q", errInvalidKamas, text)
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func getStringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok {
		return o.StringValue()
	}
	return ""
}

func getIntOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	if o, ok := opts[name]; ok {
		return o.IntValue(), true
	}
	return 0, false
}

// getMemberOption resolves a user option into a guild member, User included.
func getMemberOption(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.Member {
	o, ok := opts[name]
	if !ok {
		return nil
	}
	id, _ := o.Value.(string)
	resolved := i.ApplicationCommandData().Resolved
	if id == "" || resolved == nil {
		return nil
	}
	m, ok := resolved.Members[id]
	if !ok || m == nil {
		return nil
	}
	member := *m
	if member.User == nil {
		member.User = resolved.Users[id]
	}
	if member.User == nil {
		return nil
	}
	return &member
}

// getModalValue returns the value of the text input with the given custom ID.
func getModalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, rc := range row.Components {
			if ti, ok := rc.(*discordgo.TextInput); ok && ti.CustomID == customID {
				return ti.Value
			}
		}
	}
	return ""
}

// tryDelete deletes a channel and reports whether it worked. Callers log the
// outcome; a failure never aborts the interaction.
func tryDelete(c *Context, channelID string) bool {
	if _, err := c.Session.ChannelDelete(channelID, discordgo.WithContext(c.Context())); err != nil {
		c.Log().WithError(err).WithField("channel_id", channelID).Debug("delete channel")
		return false
	}
	return true
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}

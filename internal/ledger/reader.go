package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/platform"
)

// pageSize is the largest page the history endpoint returns.
const pageSize = 100

// ReadJournal walks the whole channel history oldest first and parses every
// message written by selfID. Messages from any other author are ignored, even
// when they carry a well-formed tag.
func ReadJournal(ctx context.Context, history platform.History, channelID, selfID string) ([]Entry, error) {
	var entries []Entry
	after := "0"

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := history.ChannelMessages(channelID, pageSize, "", after, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("read journal %s after %s: %w", channelID, after, platform.Classify(err))
		}
		if len(page) == 0 {
			break
		}

		// The API returns each page newest first.
		sort.Slice(page, func(i, j int) bool { return snowflakeLess(page[i].ID, page[j].ID) })

		for _, msg := range page {
			if msg.Author == nil || msg.Author.ID != selfID {
				continue
			}
			if e, ok := ParseEntry(msg.Content); ok {
				entries = append(entries, e)
			}
		}

		after = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}

	return entries, nil
}

// snowflakeLess orders decimal snowflake ids without parsing them.
func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Package summary keeps exactly one live summary message per key. The
// message reference is cached in the store; the message itself may vanish at
// any time, and the next publish recreates it.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/platform"
)

type Scope string

const (
	ScopeLedger      Scope = "ledger"
	ScopeStockGlobal Scope = "stock_global"
	ScopeStockAdmin  Scope = "stock_admin"
)

// Key addresses one summary message. AdminID is zero outside ScopeStockAdmin.
type Key struct {
	Scope   Scope
	GuildID int64
	AdminID int64
}

func LedgerKey(guildID int64) Key { return Key{Scope: ScopeLedger, GuildID: guildID} }

func GlobalKey(guildID int64) Key { return Key{Scope: ScopeStockGlobal, GuildID: guildID} }

func AdminKey(guildID, adminID int64) Key {
	return Key{Scope: ScopeStockAdmin, GuildID: guildID, AdminID: adminID}
}

func (k Key) String() string {
	if k.Scope == ScopeStockAdmin {
		return fmt.Sprintf("%s:%d:%d", k.Scope, k.GuildID, k.AdminID)
	}
	return fmt.Sprintf("%s:%d", k.Scope, k.GuildID)
}

// Ref points at the message currently holding a summary.
type Ref struct {
	Key       Key
	ChannelID string
	MessageID string
	UpdatedAt time.Time
}

// RefStore persists refs. GetSummaryRef returns (nil, nil) when no ref exists.
type RefStore interface {
	GetSummaryRef(ctx context.Context, key Key) (*Ref, error)
	UpsertSummaryRef(ctx context.Context, ref Ref) error
}

// Publisher creates or edits summary messages. It does no locking of its
// own; callers serialize publishes per key.
type Publisher struct {
	store     RefStore
	messenger platform.Messenger
	now       func() time.Time
}

func NewPublisher(store RefStore, messenger platform.Messenger) *Publisher {
	return &Publisher{store: store, messenger: messenger, now: time.Now}
}

// Publish edits the live message for key in place, or sends a new one into
// channelID when there is none and records it. A new message is only sent
// when channelID belongs to the key's guild.
func (p *Publisher) Publish(ctx context.Context, key Key, channelID string, embed *discordgo.MessageEmbed) (Ref, error) {
	ref, err := p.store.GetSummaryRef(ctx, key)
	if err != nil {
		return Ref{}, fmt.Errorf("load summary ref %s: %w", key, err)
	}

	if ref != nil {
		edited, err := p.edit(ctx, *ref, embed)
		if err != nil {
			return Ref{}, err
		}
		if edited {
			ref.UpdatedAt = p.now()
			if err := p.store.UpsertSummaryRef(ctx, *ref); err != nil {
				return Ref{}, fmt.Errorf("touch summary ref %s: %w", key, err)
			}
			return *ref, nil
		}
	}

	if err := platform.RequireGuildChannel(ctx, p.messenger, key.GuildID, channelID); err != nil {
		return Ref{}, fmt.Errorf("summary %s: %w", key, err)
	}
	msg, err := p.messenger.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return Ref{}, fmt.Errorf("send summary %s to channel %s: %w", key, channelID, platform.Classify(err))
	}

	created := Ref{Key: key, ChannelID: channelID, MessageID: msg.ID, UpdatedAt: p.now()}
	if err := p.store.UpsertSummaryRef(ctx, created); err != nil {
		return Ref{}, fmt.Errorf("save summary ref %s: %w", key, err)
	}
	return created, nil
}

// Refresh edits the live message for key and never creates one. It reports
// whether a message was edited.
func (p *Publisher) Refresh(ctx context.Context, key Key, embed *discordgo.MessageEmbed) (bool, error) {
	ref, err := p.store.GetSummaryRef(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load summary ref %s: %w", key, err)
	}
	if ref == nil {
		return false, nil
	}
	return p.edit(ctx, *ref, embed)
}

// edit returns false without error when the referenced message or its
// channel no longer exists.
func (p *Publisher) edit(ctx context.Context, ref Ref, embed *discordgo.MessageEmbed) (bool, error) {
	if ref.ChannelID == "" || ref.MessageID == "" {
		return false, nil
	}
	if _, err := p.messenger.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		if platform.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("fetch summary %s: %w", ref.Key, platform.Classify(err))
	}
	if _, err := p.messenger.ChannelMessageEditEmbed(ref.ChannelID, ref.MessageID, embed, discordgo.WithContext(ctx)); err != nil {
		if platform.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("edit summary %s: %w", ref.Key, platform.Classify(err))
	}
	return true, nil
}

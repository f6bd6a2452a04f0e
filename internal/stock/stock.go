// Package stock keeps per-admin kamas balances. The guild's global stock is
// always the sum of its admins' balances; nothing sets it directly.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/render"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

const lockScope = "stock"

// MaxBalance caps one admin's stock. Sums over thousands of admins stay
// within int64 and the BIGINT columns.
const MaxBalance int64 = 1_000_000_000_000_000

var (
	ErrInvalidAmount = errors.New("invalid stock amount")
	ErrInvalidKind   = errors.New("invalid stock movement kind")
	// ErrNotRefreshed is returned alongside a saved balance when a summary
	// could not be re-rendered.
	ErrNotRefreshed = errors.New("stock saved, summary not refreshed")
)

type Kind string

const (
	KindBuy    Kind = "buy"
	KindSell   Kind = "sell"
	KindManual Kind = "manual"
)

// ParseKind accepts the ticket tokens, French ones included.
func ParseKind(token string) (Kind, error) {
	switch token {
	case "buy", "achat":
		return KindBuy, nil
	case "sell", "vente":
		return KindSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, token)
}

// Movement is one append-only audit row.
type Movement struct {
	ID        uuid.UUID
	GuildID   int64
	AdminID   int64
	Kind      Kind
	Amount    int64 // absolute
	CreatedAt time.Time
}

type Balance struct {
	AdminID   int64
	Amount    int64
	UpdatedAt time.Time
}

type Admin struct {
	ID        int64
	Name      string
	AvatarURL string
}

// AdminFromMember builds an Admin from a guild member.
func AdminFromMember(m *discordgo.Member) Admin {
	if m == nil || m.User == nil {
		return Admin{}
	}
	id, _ := strconv.ParseInt(m.User.ID, 10, 64)
	name := m.Nick
	if name == "" {
		name = m.User.Username
	}
	return Admin{ID: id, Name: name, AvatarURL: m.AvatarURL("")}
}

func (a Admin) render() render.Admin {
	return render.Admin{ID: strconv.FormatInt(a.ID, 10), Name: a.Name, AvatarURL: a.AvatarURL}
}

// Store is the persistence the service needs.
type Store interface {
	AdminAmount(ctx context.Context, guildID, adminID int64) (int64, error)
	// SaveAdminMovement writes the admin's new amount and appends m in one
	// transaction.
	SaveAdminMovement(ctx context.Context, amount int64, m Movement) error
	SumAdmins(ctx context.Context, guildID int64) (int64, error)
	SetGlobalAmount(ctx context.Context, guildID, amount int64) error
	ListBalances(ctx context.Context, guildID int64) ([]Balance, error)
}

// Summaries is implemented by *summary.Publisher.
type Summaries interface {
	Publish(ctx context.Context, key summary.Key, channelID string, embed *discordgo.MessageEmbed) (summary.Ref, error)
	Refresh(ctx context.Context, key summary.Key, embed *discordgo.MessageEmbed) (bool, error)
}

type Config struct {
	GlobalChannelID string
	AdminsChannelID string
	Location        *time.Location
}

type Service struct {
	store     Store
	summaries Summaries
	locker    keylock.Locker
	events    events.Publisher
	cfg       Config
	now       func() time.Time
}

func NewService(store Store, summaries Summaries, locker keylock.Locker, publisher events.Publisher, cfg Config) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	publisher = events.WithTimeout(publisher, events.DefaultTimeout)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		store:     store,
		summaries: summaries,
		locker:    locker,
		events:    publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

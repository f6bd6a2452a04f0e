package commands

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/kamas-trade/kamasbot/internal/config"
	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/report"
	"github.com/kamas-trade/kamasbot/internal/stock"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

// Session is the part of *discordgo.Session the handlers use.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var _ Session = (*discordgo.Session)(nil)

// Ledger is implemented by *report.Service.
type Ledger interface {
	Record(ctx context.Context, guildID int64, author report.Author, kind ledger.Kind, quantityText, rateText string) (ledger.Report, error)
	Rebuild(ctx context.Context, guildID int64) (ledger.Report, error)
	ResetToZero(ctx context.Context, guildID int64) error
}

// Stock is implemented by *stock.Service.
type Stock interface {
	ApplyTransaction(ctx context.Context, guildID int64, admin stock.Admin, kind stock.Kind, amount int64) (int64, error)
	SetAdmin(ctx context.Context, guildID int64, admin stock.Admin, amount int64) (int64, error)
	AdjustAdmin(ctx context.Context, guildID int64, admin stock.Admin, delta int64) (int64, error)
	RefreshGlobal(ctx context.Context, guildID int64) (int64, error)
	PublishGlobal(ctx context.Context, guildID int64) (summary.Ref, int64, error)
	PublishAdmin(ctx context.Context, guildID int64, admin stock.Admin) (summary.Ref, int64, error)
}

// Deps are the long-lived collaborators shared by every handler.
type Deps struct {
	Config *config.Config
	Ledger Ledger
	Stock  Stock
	// Now defaults to time.Now.
	Now func() time.Time
}

// Context is everything a handler sees for one interaction.
type Context struct {
	Session     Session
	Interaction *discordgo.InteractionCreate
	GuildID     int64
	Member      *discordgo.Member
	Deps        *Deps

	ctx      context.Context
	deferred bool
}

func NewContext(ctx context.Context, s Session, i *discordgo.InteractionCreate, deps *Deps) *Context {
	return &Context{
		Session:     s,
		Interaction: i,
		GuildID:     ParseGuildID(i.GuildID),
		Member:      i.Member,
		Deps:        deps,
		ctx:         ctx,
	}
}

func (c *Context) Context() context.Context { return c.ctx }

func (c *Context) now() time.Time {
	if c.Deps.Now != nil {
		return c.Deps.Now()
	}
	return time.Now()
}

// Log returns an entry tagged with the guild and the invoking user.
func (c *Context) Log() *log.Entry {
	e := logger.Guild(c.GuildID)
	if id := c.UserID(); id != "" {
		e = e.WithField("user_id", id)
	}
	return e
}

func (c *Context) UserID() string {
	if c.Member != nil && c.Member.User != nil {
		return c.Member.User.ID
	}
	if c.Interaction.User != nil {
		return c.Interaction.User.ID
	}
	return ""
}

func (c *Context) DisplayName() string {
	if c.Member == nil || c.Member.User == nil {
		return c.UserID()
	}
	if c.Member.Nick != "" {
		return c.Member.Nick
	}
	return c.Member.User.Username
}

// IsAdmin reports whether the invoking member holds the admin role.
func (c *Context) IsAdmin() bool {
	return hasRole(c.Member, c.Deps.Config.AdminRoleID)
}

// Invoker is the invoking member as a stock holder.
func (c *Context) Invoker() stock.Admin {
	return stock.AdminFromMember(c.Member)
}

// Defer acknowledges the interaction with an ephemeral "thinking" state; the
// answer then goes through Reply, which edits it.
func (c *Context) Defer() {
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		c.Log().WithError(err).Warn("defer interaction")
		return
	}
	c.deferred = true
}

// Reply sends an ephemeral answer, editing the deferred one when needed.
func (c *Context) Reply(content string) {
	var err error
	if c.deferred {
		_, err = c.Session.InteractionResponseEdit(c.Interaction.Interaction, &discordgo.WebhookEdit{Content: &content})
	} else {
		err = c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
		})
	}
	if err != nil {
		c.Log().WithError(err).Warn("reply to interaction")
	}
}

// RequireAdmin replies with the refusal and returns false for non-admins.
func (c *Context) RequireAdmin() bool {
	if c.IsAdmin() {
		return true
	}
	c.Reply(msgAdminOnly)
	return false
}

func hasRole(m *discordgo.Member, roleID string) bool {
	if m == nil || roleID == "" {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

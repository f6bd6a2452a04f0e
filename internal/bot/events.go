package bot

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/commands"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/platform"
)

// warmupTimeout bounds the journal walk run for each guild at startup.
const warmupTimeout = 5 * time.Minute

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	logger.L().Infof("%s is connected!", event.User.Username)

	// A new session may follow a reconnect; warm every guild again.
	b.resetWarm()
	for _, guild := range event.Guilds {
		b.warmGuild(guild.ID)
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	logger.L().Infof("Guild available/joined: %s (id=%s)", event.Name, event.ID)
	b.warmGuild(event.ID)
}

// warmGuild registers the slash commands and rebuilds the ledger report once
// per guild and connection. Failures are logged, never fatal.
func (b *Bot) warmGuild(guildID string) {
	if !b.markWarm(guildID) {
		return
	}
	entry := logger.Guild(commands.ParseGuildID(guildID))

	if err := b.registerGuildCommands(guildID); err != nil {
		entry.WithError(err).Error("Failed to register commands")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
		defer cancel()
		if _, err := b.deps.Ledger.Rebuild(ctx, commands.ParseGuildID(guildID)); err != nil {
			if errors.Is(err, platform.ErrChannelNotFound) {
				entry.WithError(err).Info("no ledger channels in this guild, skipping rebuild")
				return
			}
			entry.WithError(err).Warn("startup ledger rebuild failed")
			return
		}
		entry.Info("ledger report rebuilt")
	}()
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.SelfID(), guildID, cmds)
	if err != nil {
		return err
	}

	logger.Guild(commands.ParseGuildID(guildID)).Infof("Registered %d application commands", len(cmds))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := b.interactionContext()
	defer cancel()
	if !b.router.Dispatch(ctx, s, i, b.deps) {
		logger.L().WithField("type", i.Type).Debug("unhandled interaction")
	}
}

package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/commands"
	"github.com/kamas-trade/kamasbot/internal/logger"
)

// interactionTimeout bounds one handler run. Slow work is deferred first, and
// Discord keeps a deferred interaction open for 15 minutes.
const interactionTimeout = 2 * time.Minute

type Bot struct {
	session *discordgo.Session
	router  *commands.Router
	deps    *commands.Deps

	mu     sync.Mutex
	warmed map[string]bool

	refresher *refresher
}

// New creates the session. Handlers are only useful once Attach has been
// called with the services built on top of Session().
func New(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		router:  commands.NewRouter(),
		warmed:  make(map[string]bool),
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

// Session exposes the client the services talk to.
func (b *Bot) Session() *discordgo.Session { return b.session }

// SelfID is the bot's own user id, empty until the gateway is ready.
func (b *Bot) SelfID() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// Attach wires the services used by the handlers and the background refresh.
func (b *Bot) Attach(deps *commands.Deps, refreshEvery time.Duration) {
	b.deps = deps
	if refreshEvery > 0 {
		b.refresher = newRefresher(b.guilds, deps.Ledger, deps.Stock, refreshEvery)
	}
}

func (b *Bot) Start() error {
	if b.deps == nil {
		return fmt.Errorf("bot started before Attach")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.refresher.start()
	logger.L().Info("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.refresher.stop()
	return b.session.Close()
}

// markWarm records that guildID was set up on this connection. It reports
// false if it already was.
func (b *Bot) markWarm(guildID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.warmed[guildID] {
		return false
	}
	b.warmed[guildID] = true
	return true
}

func (b *Bot) resetWarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warmed = make(map[string]bool)
}

// guilds lists the guilds seen on this connection, sorted.
func (b *Bot) guilds() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int64, 0, len(b.warmed))
	for id := range b.warmed {
		if g := commands.ParseGuildID(id); g != 0 {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Bot) interactionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), interactionTimeout)
}

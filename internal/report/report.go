// Package report drives the ledger variant: it appends journal lines and
// keeps the guild's cumulative report message in step with the journal.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/platform"
	"github.com/kamas-trade/kamasbot/internal/render"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

const lockScope = "ledger"

// ErrNotPublished means the journal line was written but the report
// message could not be refreshed. A later rebuild catches up.
var ErrNotPublished = errors.New("entry recorded, report not refreshed")

// Discord is what the service needs from the session.
type Discord interface {
	platform.Messenger
	platform.History
}

// Publisher is implemented by *summary.Publisher.
type Publisher interface {
	Publish(ctx context.Context, key summary.Key, channelID string, embed *discordgo.MessageEmbed) (summary.Ref, error)
}

type Config struct {
	JournalChannelID string
	ReportChannelID  string
	Location         *time.Location
	// SelfID returns the bot's own user id; only its messages are replayed.
	SelfID func() string
}

// Author is the admin recording a journal line.
type Author struct {
	ID   string
	Name string
}

type Service struct {
	discord   Discord
	summaries Publisher
	locker    keylock.Locker
	events    events.Publisher
	cfg       Config
	now       func() time.Time
}

func NewService(discord Discord, summaries Publisher, locker keylock.Locker, publisher events.Publisher, cfg Config) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	publisher = events.WithTimeout(publisher, events.DefaultTimeout)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		discord:   discord,
		summaries: summaries,
		locker:    locker,
		events:    publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Record validates the amounts, appends the journal line and rebuilds the
// report. Invalid input is rejected with ledger.ErrInvalidAmount before
// anything is written.
func (s *Service) Record(ctx context.Context, guildID int64, author Author, kind ledger.Kind, quantityText, rateText string) (ledger.Report, error) {
	quantity, err := ledger.ValidateAmount(quantityText)
	if err != nil {
		return ledger.Report{}, err
	}
	rate, err := ledger.ValidateAmount(rateText)
	if err != nil {
		return ledger.Report{}, err
	}

	unlock, err := s.locker.Lock(ctx, keylock.GuildKey(lockScope, guildID))
	if err != nil {
		return ledger.Report{}, err
	}
	defer unlock()

	if err := s.requireJournal(ctx, guildID); err != nil {
		return ledger.Report{}, err
	}

	content := ledger.FormatJournalLine(kind, author.Name, quantity, rate) + "\n" +
		ledger.FormatTag(kind, quantity, rate, author.ID)
	msg, err := s.discord.ChannelMessageSend(s.cfg.JournalChannelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return ledger.Report{}, fmt.Errorf("append journal line: %w", platform.Classify(err))
	}

	entry := logger.Guild(guildID).WithField("author_id", author.ID)
	entry.Infof("journal %s %s M at %s", kind, quantity, rate)

	err = s.events.Publish(ctx, strconv.FormatInt(guildID, 10), events.LedgerEntryRecorded{
		Type:       events.TypeLedgerEntry,
		GuildID:    guildID,
		MessageID:  msg.ID,
		ActorID:    author.ID,
		Kind:       string(kind),
		Quantity:   quantity,
		Rate:       rate,
		Value:      quantity.Mul(rate).Round(2),
		OccurredAt: s.now(),
	})
	if err != nil {
		entry.WithError(err).Warn("publish ledger entry event")
	}

	report, err := s.rebuildLocked(ctx, guildID)
	if err != nil {
		return ledger.Report{}, fmt.Errorf("%w: %w", ErrNotPublished, err)
	}
	return report, nil
}

// Rebuild replays the whole journal and publishes the resulting report.
func (s *Service) Rebuild(ctx context.Context, guildID int64) (ledger.Report, error) {
	unlock, err := s.locker.Lock(ctx, keylock.GuildKey(lockScope, guildID))
	if err != nil {
		return ledger.Report{}, err
	}
	defer unlock()

	return s.rebuildLocked(ctx, guildID)
}

// Publish is Rebuild: the ledger report is never patched incrementally.
func (s *Service) Publish(ctx context.Context, guildID int64) (ledger.Report, error) {
	return s.Rebuild(ctx, guildID)
}

// ResetToZero publishes an all-zero report without reading the journal.
// The journal itself is untouched; the next rebuild restores the real
// totals.
func (s *Service) ResetToZero(ctx context.Context, guildID int64) error {
	unlock, err := s.locker.Lock(ctx, keylock.GuildKey(lockScope, guildID))
	if err != nil {
		return err
	}
	defer unlock()

	doc := render.Ledger(ledger.Aggregate(nil), s.now(), s.cfg.Location)
	if _, err := s.summaries.Publish(ctx, summary.LedgerKey(guildID), s.cfg.ReportChannelID, doc.Embed()); err != nil {
		return fmt.Errorf("publish zero report: %w", err)
	}
	logger.Guild(guildID).Info("ledger report reset to zero")
	return nil
}

// Snapshot reads and folds the journal without publishing anything.
func (s *Service) Snapshot(ctx context.Context, guildID int64) (ledger.Report, error) {
	if err := s.requireJournal(ctx, guildID); err != nil {
		return ledger.Report{}, err
	}
	entries, err := ledger.ReadJournal(ctx, s.discord, s.cfg.JournalChannelID, s.selfID())
	if err != nil {
		return ledger.Report{}, err
	}
	return ledger.Aggregate(entries), nil
}

func (s *Service) rebuildLocked(ctx context.Context, guildID int64) (ledger.Report, error) {
	if err := s.requireJournal(ctx, guildID); err != nil {
		return ledger.Report{}, err
	}
	entries, err := ledger.ReadJournal(ctx, s.discord, s.cfg.JournalChannelID, s.selfID())
	if err != nil {
		return ledger.Report{}, err
	}
	report := ledger.Aggregate(entries)

	doc := render.Ledger(report, s.now(), s.cfg.Location)
	if _, err := s.summaries.Publish(ctx, summary.LedgerKey(guildID), s.cfg.ReportChannelID, doc.Embed()); err != nil {
		return report, fmt.Errorf("publish report: %w", err)
	}

	logger.Guild(guildID).Debugf("ledger rebuilt from %d entries, net %s", len(entries), report.Net.StringFixed(2))
	return report, nil
}

// requireJournal fails with platform.ErrChannelNotFound when the journal
// channel is not part of guildID. The ledger lives in a single guild.
func (s *Service) requireJournal(ctx context.Context, guildID int64) error {
	if err := platform.RequireGuildChannel(ctx, s.discord, guildID, s.cfg.JournalChannelID); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func (s *Service) selfID() string {
	if s.cfg.SelfID == nil {
		return ""
	}
	return s.cfg.SelfID()
}

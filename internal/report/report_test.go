package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/platform"
	"github.com/kamas-trade/kamasbot/internal/platform/platformtest"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

const (
	botID     = "900000000000000001"
	journalCh = "4000"
	reportCh  = "4001"
	guild     = int64(7)
)

type memRefs struct {
	mu   sync.Mutex
	refs map[summary.Key]summary.Ref
}

func (m *memRefs) GetSummaryRef(ctx context.Context, key summary.Key) (*summary.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[key]
	if !ok {
		return nil, nil
	}
	return &ref, nil
}

func (m *memRefs) UpsertSummaryRef(ctx context.Context, ref summary.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[ref.Key] = ref
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) Publish(ctx context.Context, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	svc    *Service
	fake   *platformtest.Fake
	refs   *memRefs
	events *recorder
}

func newFixture() fixture {
	fake := platformtest.New(botID).AssignGuild("7", journalCh, reportCh)
	refs := &memRefs{refs: make(map[summary.Key]summary.Ref)}
	rec := &recorder{}
	svc := NewService(fake, summary.NewPublisher(refs, fake), keylock.NewLocal(), rec, Config{
		JournalChannelID: journalCh,
		ReportChannelID:  reportCh,
		Location:         time.UTC,
		SelfID:           func() string { return botID },
	})
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC) }
	return fixture{svc: svc, fake: fake, refs: refs, events: rec}
}

func reportMessage(t *testing.T, f fixture) string {
	t.Helper()
	msgs := f.fake.Messages(reportCh)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Embeds, 1)
	var b strings.Builder
	for _, field := range msgs[0].Embeds[0].Fields {
		b.WriteString(field.Value)
		b.WriteString("\n")
	}
	return b.String()
}

func TestRebuildScenario(t *testing.T) {
	f := newFixture()
	f.fake.Post(journalCh, botID, "[[DATA|buy|100|5.00|111112222]]")
	f.fake.Post(journalCh, botID, "[[DATA|sell|40|6,50|333334444]]")

	r, err := f.svc.Rebuild(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, "500.00", r.BuyTotal.StringFixed(2))
	assert.Equal(t, "260.00", r.SellTotal.StringFixed(2))
	assert.Equal(t, "-240.00", r.Net.StringFixed(2))
	assert.Equal(t, ledger.Deficit, r.Outcome())

	assert.Contains(t, reportMessage(t, f), "Perte nette = −240,00 €")
}

func TestRebuildIsDeterministicAndIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.fake.Post(journalCh, botID, "💰 [Alice] a acheté 200,00 M au taux de 3,80 €/M — soit 760,00 €")
	f.fake.Post(journalCh, "12345", "[[DATA|sell|9999|9|123456789]]")
	f.fake.Post(journalCh, botID, "[[DATA|sell|10|2|123456789]]")

	first, err := f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	before := f.fake.Messages(reportCh)[0].Embeds[0]

	second, err := f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	after := f.fake.Messages(reportCh)[0].Embeds[0]

	assert.True(t, first.Net.Equal(second.Net))
	assert.True(t, first.BuyTotal.Equal(second.BuyTotal))
	assert.True(t, first.SellTotal.Equal(second.SellTotal))
	assert.Equal(t, before, after)
	assert.Len(t, f.fake.Messages(reportCh), 1)
	assert.Equal(t, "-740.00", second.Net.StringFixed(2))
}

func TestRecordAppendsAndPublishes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	r, err := f.svc.Record(ctx, guild, Author{ID: "111112222", Name: "Alice"}, ledger.KindBuy, "200", "3,80")
	require.NoError(t, err)
	assert.Equal(t, "760.00", r.BuyTotal.StringFixed(2))

	journal := f.fake.Messages(journalCh)
	require.Len(t, journal, 1)
	assert.Equal(t,
		"💰 [Alice] a acheté 200,00 M au taux de 3,80 €/M — soit 760,00 €\n[[DATA|buy|200|3.8|111112222]]",
		journal[0].Content)

	e, ok := ledger.ParseEntry(journal[0].Content)
	require.True(t, ok)
	assert.Equal(t, "Alice", e.ActorName)

	_, err = f.svc.Record(ctx, guild, Author{ID: "333334444", Name: "Bob"}, ledger.KindSell, "1 000", "1")
	require.NoError(t, err)
	assert.Len(t, f.fake.Messages(reportCh), 1)
	assert.Contains(t, reportMessage(t, f), "Bénéfice net = +240,00 €")

	require.Len(t, f.events.events, 2)
	ev := f.events.events[0].(events.LedgerEntryRecorded)
	assert.Equal(t, "buy", ev.Kind)
	assert.Equal(t, journal[0].ID, ev.MessageID)
	assert.Equal(t, "760", ev.Value.String())
}

func TestRecordRejectsInvalidAmounts(t *testing.T) {
	f := newFixture()
	for _, tc := range [][2]string{{"0", "3"}, {"abc", "3"}, {"10", "-1"}, {"10", ""}} {
		_, err := f.svc.Record(context.Background(), guild, Author{ID: "111112222", Name: "A"}, ledger.KindBuy, tc[0], tc[1])
		assert.True(t, errors.Is(err, ledger.ErrInvalidAmount), "input %v", tc)
	}
	assert.Empty(t, f.fake.Messages(journalCh))
	assert.Empty(t, f.fake.Messages(reportCh))
}

func TestRecordMissingJournalChannel(t *testing.T) {
	f := newFixture()
	f.fake.RemoveChannel(journalCh)

	_, err := f.svc.Record(context.Background(), guild, Author{ID: "111112222", Name: "A"}, ledger.KindBuy, "1", "1")
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	assert.False(t, errors.Is(err, ErrNotPublished))
}

func TestRecordReportChannelForbidden(t *testing.T) {
	f := newFixture()
	f.fake.Forbid(reportCh)

	_, err := f.svc.Record(context.Background(), guild, Author{ID: "111112222", Name: "A"}, ledger.KindBuy, "1", "1")
	assert.True(t, errors.Is(err, ErrNotPublished))
	assert.True(t, errors.Is(err, platform.ErrForbidden))
	assert.Len(t, f.fake.Messages(journalCh), 1)
}

func TestRebuildMissingJournal(t *testing.T) {
	f := newFixture()
	f.fake.RemoveChannel(journalCh)

	_, err := f.svc.Rebuild(context.Background(), guild)
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	assert.Zero(t, f.fake.Sends)
}

func TestResetToZeroDoesNotReadJournal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.fake.Post(journalCh, botID, "[[DATA|buy|100|5.00|111112222]]")
	_, err := f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	pages := f.fake.Pages

	require.NoError(t, f.svc.ResetToZero(ctx, guild))
	assert.Equal(t, pages, f.fake.Pages)

	out := reportMessage(t, f)
	assert.Contains(t, out, "(aucune entrée)")
	assert.Contains(t, out, "Équilibre = 0,00 €")
	assert.Len(t, f.fake.Messages(journalCh), 1)

	r, err := f.svc.Publish(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, "500.00", r.BuyTotal.StringFixed(2))
}

func TestSnapshotDoesNotPublish(t *testing.T) {
	f := newFixture()
	f.fake.Post(journalCh, botID, "[[DATA|sell|40|6,50|333334444]]")

	r, err := f.svc.Snapshot(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, "260.00", r.SellTotal.StringFixed(2))
	assert.Zero(t, f.fake.Sends)
}

func TestRebuildRecreatesDeletedReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	first := f.fake.Messages(reportCh)[0].ID
	f.fake.Delete(reportCh, first)

	_, err = f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	msgs := f.fake.Messages(reportCh)
	require.Len(t, msgs, 1)
	assert.NotEqual(t, first, msgs[0].ID)
	assert.Equal(t, msgs[0].ID, f.refs.refs[summary.LedgerKey(guild)].MessageID)
}

func TestOtherGuildsCannotReachTheLedger(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	other := int64(8)
	f.fake.Post(journalCh, botID, "[[DATA|buy|100|5.00|111112222]]")

	_, err := f.svc.Rebuild(ctx, guild)
	require.NoError(t, err)
	pages := f.fake.Pages

	_, err = f.svc.Rebuild(ctx, other)
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	_, err = f.svc.Snapshot(ctx, other)
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	err = f.svc.ResetToZero(ctx, other)
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	_, err = f.svc.Record(ctx, other, Author{ID: "111112222", Name: "A"}, ledger.KindBuy, "1", "1")
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))

	assert.Equal(t, pages, f.fake.Pages)
	assert.Len(t, f.fake.Messages(reportCh), 1)
	assert.Len(t, f.fake.Messages(journalCh), 1)
	_, ok := f.refs.refs[summary.LedgerKey(other)]
	assert.False(t, ok)
}

func TestJournalInAnotherGuildIsNotFound(t *testing.T) {
	f := newFixture()
	f.fake.AssignGuild("8", journalCh)

	_, err := f.svc.Rebuild(context.Background(), guild)
	assert.True(t, errors.Is(err, platform.ErrChannelNotFound))
	assert.Zero(t, f.fake.Pages)
	assert.Empty(t, f.fake.Messages(reportCh))
}

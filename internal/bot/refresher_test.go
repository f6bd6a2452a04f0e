package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/platform/platformtest"
	"github.com/kamas-trade/kamasbot/internal/report"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type countingLedger struct {
	calls map[int64]int
	errs  []error
}

func (c *countingLedger) Rebuild(ctx context.Context, guildID int64) (ledger.Report, error) {
	c.calls[guildID]++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return ledger.Report{}, err
	}
	return ledger.Report{}, nil
}

type countingStock struct {
	calls map[int64]int
}

func (c *countingStock) RefreshGlobal(ctx context.Context, guildID int64) (int64, error) {
	c.calls[guildID]++
	return 0, nil
}

func newTestRefresher(guilds []int64, l *countingLedger, s *countingStock) *refresher {
	w := newRefresher(func() []int64 { return guilds }, l, s, 0)
	w.pause = func() {}
	return w
}

func TestRefresherTouchesEveryGuild(t *testing.T) {
	l := &countingLedger{calls: map[int64]int{}}
	s := &countingStock{calls: map[int64]int{}}
	w := newTestRefresher([]int64{1, 2}, l, s)

	w.tick(context.Background())

	assert.Equal(t, map[int64]int{1: 1, 2: 1}, l.calls)
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, s.calls)
}

func TestRefresherRetriesTimeoutsOnly(t *testing.T) {
	l := &countingLedger{calls: map[int64]int{}, errs: []error{timeoutErr{}}}
	s := &countingStock{calls: map[int64]int{}}
	w := newTestRefresher([]int64{1}, l, s)
	w.tick(context.Background())
	assert.Equal(t, 2, l.calls[1])

	l = &countingLedger{calls: map[int64]int{}, errs: []error{errors.New("forbidden")}}
	w = newTestRefresher([]int64{1}, l, s)
	w.tick(context.Background())
	assert.Equal(t, 1, l.calls[1])
	// a ledger failure does not skip the stock refresh
	assert.Equal(t, 2, s.calls[1])
}

func TestRefresherNilIsInert(t *testing.T) {
	var w *refresher
	w.start()
	w.stop()
}

func TestMarkWarmOncePerConnection(t *testing.T) {
	b := &Bot{warmed: make(map[string]bool)}
	assert.True(t, b.markWarm("10"))
	assert.False(t, b.markWarm("10"))
	assert.True(t, b.markWarm("2"))
	assert.Equal(t, []int64{2, 10}, b.guilds())

	b.resetWarm()
	assert.True(t, b.markWarm("10"))
}

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

func TestRefresherKeepsOneReportAcrossGuilds(t *testing.T) {
	const (
		botID     = "900000000000000001"
		journalCh = "4000"
		reportCh  = "4001"
	)
	fake := platformtest.New(botID).AssignGuild("7", journalCh, reportCh)
	fake.Post(journalCh, botID, "[[DATA|buy|100|5.00|111112222]]")
	refs := &memRefs{refs: make(map[summary.Key]summary.Ref)}
	svc := report.NewService(fake, summary.NewPublisher(refs, fake), keylock.NewLocal(), events.Noop{}, report.Config{
		JournalChannelID: journalCh,
		ReportChannelID:  reportCh,
		Location:         time.UTC,
		SelfID:           func() string { return botID },
	})
	s := &countingStock{calls: map[int64]int{}}
	w := newRefresher(func() []int64 { return []int64{7, 8, 9} }, svc, s, 0)
	w.pause = func() {}

	w.tick(context.Background())
	w.tick(context.Background())

	require.Len(t, fake.Messages(reportCh), 1)
	assert.Len(t, refs.refs, 1)
	_, ok := refs.refs[summary.LedgerKey(7)]
	assert.True(t, ok)
	assert.Equal(t, map[int64]int{7: 2, 8: 2, 9: 2}, s.calls)
}

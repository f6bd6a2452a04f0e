package bot

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/platform"
)

type ledgerRebuilder interface {
	Rebuild(ctx context.Context, guildID int64) (ledger.Report, error)
}

type globalRefresher interface {
	RefreshGlobal(ctx context.Context, guildID int64) (int64, error)
}

// refresher periodically rebuilds every known guild's ledger report and
// global stock summary.
type refresher struct {
	guilds   func() []int64
	ledger   ledgerRebuilder
	stock    globalRefresher
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration

	attemptTimeout time.Duration
	maxAttempts    int
	pause          func()
}

func newRefresher(guilds func() []int64, l ledgerRebuilder, s globalRefresher, interval time.Duration) *refresher {
	return &refresher{
		guilds:         guilds,
		ledger:         l,
		stock:          s,
		stopChan:       make(chan struct{}),
		interval:       interval,
		attemptTimeout: 2 * time.Minute,
		maxAttempts:    2,
		pause:          func() { time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond) },
	}
}

func (w *refresher) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *refresher) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *refresher) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *refresher) tick(ctx context.Context) {
	for _, g := range w.guilds() {
		entry := logger.Guild(g)
		err := w.withRetry(ctx, func(ctx context.Context) error {
			_, err := w.ledger.Rebuild(ctx, g)
			return err
		})
		switch {
		case errors.Is(err, platform.ErrChannelNotFound):
			entry.WithError(err).Debug("refresh: no ledger channels in this guild")
		case err != nil:
			entry.WithError(err).Warn("refresh: ledger rebuild failed")
		}
		err = w.withRetry(ctx, func(ctx context.Context) error {
			_, err := w.stock.RefreshGlobal(ctx, g)
			return err
		})
		if err != nil {
			entry.WithError(err).Warn("refresh: global stock refresh failed")
		}
	}
}

// withRetry retries fn once more on network timeouts only.
func (w *refresher) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !platform.IsTemporaryOrTimeout(err) {
			return err
		}
		w.pause()
	}
	return lastErr
}

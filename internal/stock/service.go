package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kamas-trade/kamasbot/internal/events"
	"github.com/kamas-trade/kamasbot/internal/keylock"
	"github.com/kamas-trade/kamasbot/internal/logger"
	"github.com/kamas-trade/kamasbot/internal/render"
	"github.com/kamas-trade/kamasbot/internal/summary"
)

// ApplyTransaction moves amount kamas into (buy) or out of (sell) the
// admin's stock, floored at zero. An error wrapping ErrNotRefreshed means the
// balance was saved but a summary could not be updated.
func (s *Service) ApplyTransaction(ctx context.Context, guildID int64, admin Admin, kind Kind, amount int64) (int64, error) {
	if kind != KindBuy && kind != KindSell {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if amount <= 0 || amount > MaxBalance {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return s.mutate(ctx, guildID, admin, kind, func(current int64) (int64, int64) {
		if kind == KindSell {
			return current - amount, amount
		}
		return current + amount, amount
	})
}

// SetAdmin sets the admin's stock to exactly amount.
func (s *Service) SetAdmin(ctx context.Context, guildID int64, admin Admin, amount int64) (int64, error) {
	if amount < 0 || amount > MaxBalance {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return s.mutate(ctx, guildID, admin, KindManual, func(current int64) (int64, int64) {
		return amount, abs(amount - current)
	})
}

// AdjustAdmin adds delta, which may be negative, to the admin's stock.
func (s *Service) AdjustAdmin(ctx context.Context, guildID int64, admin Admin, delta int64) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: delta must not be zero", ErrInvalidAmount)
	}
	if delta > MaxBalance || delta < -MaxBalance {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, delta)
	}
	return s.mutate(ctx, guildID, admin, KindManual, func(current int64) (int64, int64) {
		return current + delta, abs(delta)
	})
}

// mutate is the single read-modify-write path. step returns the new amount
// and the movement amount to record. Steps never see more than MaxBalance in
// either operand, so they cannot overflow.
func (s *Service) mutate(ctx context.Context, guildID int64, admin Admin, kind Kind, step func(current int64) (next, moved int64)) (int64, error) {
	unlock, err := s.locker.Lock(ctx, keylock.AdminKey(lockScope, guildID, admin.ID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	current, err := s.store.AdminAmount(ctx, guildID, admin.ID)
	if err != nil {
		return 0, fmt.Errorf("read stock of admin %d: %w", admin.ID, err)
	}
	next, moved := step(current)
	if next < 0 {
		next = 0
	}
	if next > MaxBalance {
		return 0, fmt.Errorf("%w: stock of admin %d would reach %d", ErrInvalidAmount, admin.ID, next)
	}

	m := Movement{
		ID:        uuid.New(),
		GuildID:   guildID,
		AdminID:   admin.ID,
		Kind:      kind,
		Amount:    moved,
		CreatedAt: s.now(),
	}
	if err := s.store.SaveAdminMovement(ctx, next, m); err != nil {
		return 0, fmt.Errorf("save stock of admin %d: %w", admin.ID, err)
	}

	entry := logger.Guild(guildID).WithFields(log.Fields{"admin_id": admin.ID, "kind": kind})
	entry.Infof("stock %d -> %d", current, next)
	s.emit(ctx, m, next, entry)

	var errs []error
	doc := render.StockAdmin(admin.render(), next, m.CreatedAt, s.cfg.Location)
	if _, err := s.summaries.Refresh(ctx, summary.AdminKey(guildID, admin.ID), doc.Embed()); err != nil {
		errs = append(errs, fmt.Errorf("refresh admin summary: %w", err))
	}
	// Lock order is admin then guild, never the reverse.
	if _, err := s.RefreshGlobal(ctx, guildID); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return next, fmt.Errorf("%w: %w", ErrNotRefreshed, errors.Join(errs...))
	}
	return next, nil
}

// RefreshGlobal recomputes the global stock as the sum of admin stocks,
// caches it and re-renders the global summary if one is published.
func (s *Service) RefreshGlobal(ctx context.Context, guildID int64) (int64, error) {
	unlock, err := s.locker.Lock(ctx, keylock.GuildKey(lockScope, guildID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	total, err := s.recomputeLocked(ctx, guildID)
	if err != nil {
		return 0, err
	}
	doc := render.StockGlobal(total, s.now(), s.cfg.Location)
	if _, err := s.summaries.Refresh(ctx, summary.GlobalKey(guildID), doc.Embed()); err != nil {
		return total, fmt.Errorf("refresh global summary: %w", err)
	}
	return total, nil
}

func (s *Service) recomputeLocked(ctx context.Context, guildID int64) (int64, error) {
	total, err := s.store.SumAdmins(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("sum admin stocks: %w", err)
	}
	if err := s.store.SetGlobalAmount(ctx, guildID, total); err != nil {
		return 0, fmt.Errorf("save global stock: %w", err)
	}
	return total, nil
}

// PublishGlobal creates or edits the global summary message.
func (s *Service) PublishGlobal(ctx context.Context, guildID int64) (summary.Ref, int64, error) {
	unlock, err := s.locker.Lock(ctx, keylock.GuildKey(lockScope, guildID))
	if err != nil {
		return summary.Ref{}, 0, err
	}
	defer unlock()

	total, err := s.recomputeLocked(ctx, guildID)
	if err != nil {
		return summary.Ref{}, 0, err
	}
	doc := render.StockGlobal(total, s.now(), s.cfg.Location)
	ref, err := s.summaries.Publish(ctx, summary.GlobalKey(guildID), s.cfg.GlobalChannelID, doc.Embed())
	if err != nil {
		return summary.Ref{}, total, fmt.Errorf("publish global summary: %w", err)
	}
	return ref, total, nil
}

// PublishAdmin creates or edits the admin's summary message.
func (s *Service) PublishAdmin(ctx context.Context, guildID int64, admin Admin) (summary.Ref, int64, error) {
	unlock, err := s.locker.Lock(ctx, keylock.AdminKey(lockScope, guildID, admin.ID))
	if err != nil {
		return summary.Ref{}, 0, err
	}
	defer unlock()

	amount, err := s.store.AdminAmount(ctx, guildID, admin.ID)
	if err != nil {
		return summary.Ref{}, 0, fmt.Errorf("read stock of admin %d: %w", admin.ID, err)
	}
	doc := render.StockAdmin(admin.render(), amount, s.now(), s.cfg.Location)
	ref, err := s.summaries.Publish(ctx, summary.AdminKey(guildID, admin.ID), s.cfg.AdminsChannelID, doc.Embed())
	if err != nil {
		return summary.Ref{}, amount, fmt.Errorf("publish admin summary: %w", err)
	}
	return ref, amount, nil
}

// Balances lists every admin stock of the guild with the derived total.
func (s *Service) Balances(ctx context.Context, guildID int64) ([]Balance, int64, error) {
	balances, err := s.store.ListBalances(ctx, guildID)
	if err != nil {
		return nil, 0, fmt.Errorf("list stocks: %w", err)
	}
	var total int64
	for _, b := range balances {
		total += b.Amount
	}
	return balances, total, nil
}

func (s *Service) emit(ctx context.Context, m Movement, balance int64, entry *log.Entry) {
	err := s.events.Publish(ctx, fmt.Sprintf("%d", m.GuildID), events.StockMovement{
		Type:       events.TypeStockMovement,
		MovementID: m.ID.String(),
		GuildID:    m.GuildID,
		AdminID:    m.AdminID,
		Kind:       string(m.Kind),
		Amount:     m.Amount,
		Balance:    balance,
		OccurredAt: m.CreatedAt,
	})
	if err != nil {
		entry.WithError(err).Warn("publish stock movement event")
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kamas-trade/kamasbot/internal/stock"
)

// AdminAmount returns 0 for an admin without a row.
func (db *DB) AdminAmount(ctx context.Context, guildID, adminID int64) (int64, error) {
	var amount int64
	err := db.pool.QueryRow(ctx,
		"SELECT amount FROM stock_admin WHERE guild_id = $1 AND admin_id = $2",
		guildID, adminID,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return amount, nil
}

// SaveAdminMovement writes the admin amount and its audit row together.
func (db *DB) SaveAdminMovement(ctx context.Context, amount int64, m stock.Movement) (err error) {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO stock_admin (guild_id, admin_id, amount, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (guild_id, admin_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at`,
		m.GuildID, m.AdminID, amount, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock_admin: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO stock_movements (id, guild_id, admin_id, kind, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID.String(), m.GuildID, m.AdminID, string(m.Kind), m.Amount, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock_movements: %w", err)
	}

	return tx.Commit(ctx)
}

func (db *DB) SumAdmins(ctx context.Context, guildID int64) (int64, error) {
	var total int64
	err := db.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0)::BIGINT FROM stock_admin WHERE guild_id = $1",
		guildID,
	).Scan(&total)
	return total, err
}

// SetGlobalAmount caches the derived global amount. Only the recompute step
// calls it.
func (db *DB) SetGlobalAmount(ctx context.Context, guildID, amount int64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO stock_global (guild_id, amount, updated_at)
		 VALUES ($1, $2, CURRENT_TIMESTAMP)
		 ON CONFLICT (guild_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at`,
		guildID, amount,
	)
	return err
}

func (db *DB) ListBalances(ctx context.Context, guildID int64) ([]stock.Balance, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT admin_id, amount, updated_at FROM stock_admin WHERE guild_id = $1 ORDER BY amount DESC, admin_id",
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []stock.Balance
	for rows.Next() {
		var b stock.Balance
		if err := rows.Scan(&b.AdminID, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return balances, nil
}

var _ stock.Store = (*DB)(nil)

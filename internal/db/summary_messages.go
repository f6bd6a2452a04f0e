package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kamas-trade/kamasbot/internal/summary"
)

// GetSummaryRef returns nil when no summary message was recorded for key.
func (db *DB) GetSummaryRef(ctx context.Context, key summary.Key) (*summary.Ref, error) {
	ref := summary.Ref{Key: key}
	err := db.pool.QueryRow(ctx,
		`SELECT channel_id, message_id, updated_at FROM summary_messages
		 WHERE scope = $1 AND guild_id = $2 AND admin_id = $3`,
		string(key.Scope), key.GuildID, key.AdminID,
	).Scan(&ref.ChannelID, &ref.MessageID, &ref.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

// UpsertSummaryRef records ref as the live message for its key; the last
// writer wins.
func (db *DB) UpsertSummaryRef(ctx context.Context, ref summary.Ref) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO summary_messages (scope, guild_id, admin_id, channel_id, message_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (scope, guild_id, admin_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			message_id = EXCLUDED.message_id,
			updated_at = EXCLUDED.updated_at`,
		string(ref.Key.Scope), ref.Key.GuildID, ref.Key.AdminID, ref.ChannelID, ref.MessageID, ref.UpdatedAt,
	)
	return err
}

var _ summary.RefStore = (*DB)(nil)

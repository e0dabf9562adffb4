package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/paynet-xyz/paynet-mint/correlator"
	"github.com/paynet-xyz/paynet-mint/indexerclient"
)

// CorrelatorStore implements correlator.CursorStore.
type CorrelatorStore struct {
	db *DB
}

func NewCorrelatorStore(db *DB) *CorrelatorStore {
	return &CorrelatorStore{db: db}
}

func (s *CorrelatorStore) GetCursor(ctx context.Context, name string) (string, error) {
	var cursor string
	err := s.db.conn.QueryRowContext(ctx, `SELECT cursor FROM correlator_cursor WHERE id = ?`, name).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return cursor, err
}

func (s *CorrelatorStore) SaveCursor(ctx context.Context, name string, cursor string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO correlator_cursor (id, cursor) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET cursor = excluded.cursor
	`, name, cursor)
	return err
}

func (s *CorrelatorStore) RecordEvent(ctx context.Context, txHash string, eventIndex uint32, blockID string, kind indexerclient.EventKind, correlationKey string) (bool, error) {
	res, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO correlator_events (tx_hash, event_index, processed_at, block_id, kind, correlation_key)
		VALUES (?, ?, strftime('%s','now'), ?, ?, ?)
		ON CONFLICT(tx_hash, event_index) DO NOTHING
	`, txHash, eventIndex, blockID, int(kind), correlationKey)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *CorrelatorStore) EventsForBlock(ctx context.Context, blockID string) ([]correlator.RecordedEvent, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT kind, correlation_key FROM correlator_events WHERE block_id = ?
	`, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []correlator.RecordedEvent
	for rows.Next() {
		var kind int
		var key string
		if err := rows.Scan(&kind, &key); err != nil {
			return nil, err
		}
		out = append(out, correlator.RecordedEvent{Kind: indexerclient.EventKind(kind), CorrelationKey: key})
	}
	return out, rows.Err()
}

func (s *CorrelatorStore) DeleteEventsForBlock(ctx context.Context, blockID string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM correlator_events WHERE block_id = ?`, blockID)
	return err
}

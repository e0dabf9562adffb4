package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
)

// LedgerStore implements ledger.Store.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// insertProofs runs the shared "reject if any Y already recorded,
// otherwise insert all" sequence Consume and Hold both need. The
// uniqueness constraint on proofs.y is what actually prevents a
// double-spend race between two concurrent callers; the pre-check
// only produces a clean error instead of a raw constraint violation.
func (s *LedgerStore) insertProofs(ctx context.Context, tx *sql.Tx, proofs []ledger.Proof, state string, ref ledger.PendingRef) error {
	for _, p := range proofs {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM proofs WHERE y = ?`, p.Y).Scan(&exists)
		if err == nil {
			return &cashuerr.DoubleSpend
		}
		if err != sql.ErrNoRows {
			return err
		}
	}

	for _, p := range proofs {
		var dleq []byte
		if len(p.DLEQProof) > 0 {
			dleq = p.DLEQProof
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO proofs (y, amount, keyset_id, secret, c, dleq, state, ref)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.Y, p.Amount, p.KeysetID.String(), p.Secret, p.C, dleq, state, string(ref))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) Consume(ctx context.Context, proofs []ledger.Proof, ref ledger.PendingRef) error {
	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.insertProofs(ctx, tx, proofs, "SPENT", ref); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LedgerStore) Hold(ctx context.Context, proofs []ledger.Proof, ref ledger.PendingRef) error {
	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.insertProofs(ctx, tx, proofs, "PENDING", ref); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LedgerStore) Finalize(ctx context.Context, ref ledger.PendingRef, outcome ledger.Outcome) error {
	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch outcome {
	case ledger.OutcomeSpent:
		_, err = tx.ExecContext(ctx, `UPDATE proofs SET state = 'SPENT' WHERE ref = ? AND state = 'PENDING'`, string(ref))
	case ledger.OutcomeReleased:
		_, err = tx.ExecContext(ctx, `DELETE FROM proofs WHERE ref = ? AND state = 'PENDING'`, string(ref))
	default:
		return fmt.Errorf("sqlite: unknown outcome %v", outcome)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *LedgerStore) Unspend(ctx context.Context, ref ledger.PendingRef) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM proofs WHERE ref = ? AND state = 'SPENT'`, string(ref))
	return err
}

func (s *LedgerStore) IsSpent(ctx context.Context, ys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ys))
	for _, y := range ys {
		out[y] = false
	}

	if len(ys) == 0 {
		return out, nil
	}

	args := make([]any, len(ys))
	placeholders := ""
	for i, y := range ys {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = y
	}

	rows, err := s.db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT y FROM proofs WHERE state = 'SPENT' AND y IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out[y] = true
	}
	return out, rows.Err()
}

func (s *LedgerStore) RecordIssued(ctx context.Context, keysetID keyset.ID, amount uint64) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO issued_totals (keyset_id, total) VALUES (?, ?)
		ON CONFLICT(keyset_id) DO UPDATE SET total = total + excluded.total
	`, keysetID.String(), amount)
	return err
}

func (s *LedgerStore) SaveBlindSignatures(ctx context.Context, quoteID string, sigs []ledger.BlindSignature) error {
	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sig := range sigs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO blind_signatures (b_, quote_id, amount, keyset_id, c, dleq)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(b_) DO NOTHING
		`, sig.B_, quoteID, sig.Amount, sig.KeysetID.String(), sig.C, sig.DLEQProof)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *LedgerStore) GetBlindSignatures(ctx context.Context, bs []string) (map[string]ledger.BlindSignature, error) {
	out := make(map[string]ledger.BlindSignature, len(bs))
	if len(bs) == 0 {
		return out, nil
	}

	args := make([]any, len(bs))
	placeholders := ""
	for i, b := range bs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = b
	}

	rows, err := s.db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT b_, amount, keyset_id, c, dleq FROM blind_signatures WHERE b_ IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b_, idHex, c string
		var amount uint64
		var dleq []byte
		if err := rows.Scan(&b_, &amount, &idHex, &c, &dleq); err != nil {
			return nil, err
		}
		id, err := keyset.IDFromHex(idHex)
		if err != nil {
			return nil, err
		}
		out[b_] = ledger.BlindSignature{B_: b_, Amount: amount, KeysetID: id, C: c, DLEQProof: dleq}
	}
	return out, rows.Err()
}

func (s *LedgerStore) ReleaseStalePending(ctx context.Context, refPrefix string, olderThan time.Time) (int, error) {
	res, err := s.db.conn.ExecContext(ctx, `
		DELETE FROM proofs WHERE state = 'PENDING' AND ref LIKE ? AND held_at < ?
	`, refPrefix+"%", olderThan.Unix())
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	return int(rows), err
}

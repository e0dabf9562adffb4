package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
)

// KeysetStore implements keyset.Store.
type KeysetStore struct {
	db *DB
}

func NewKeysetStore(db *DB) *KeysetStore {
	return &KeysetStore{db: db}
}

// RotateKeyset inserts newKeyset and, if hasPrev, demotes prevID in
// the same transaction, so a crash between the two writes can never
// leave two active keysets for one unit.
func (s *KeysetStore) RotateKeyset(ctx context.Context, ks keyset.Keyset, prevID keyset.ID, hasPrev bool) error {
	pubkeysJSON, err := json.Marshal(ks.PublicKeys)
	if err != nil {
		return fmt.Errorf("sqlite: marshaling keyset public keys: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO keysets (id, unit, active, max_order, derivation_path_idx, input_fee_ppk, public_keys)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ks.ID.String(), ks.Unit, ks.Active, ks.MaxOrder, ks.DerivationPathIdx, ks.InputFeePpk, pubkeysJSON); err != nil {
		return err
	}

	if hasPrev {
		if _, err := tx.ExecContext(ctx, `UPDATE keysets SET active = ? WHERE id = ?`, false, prevID.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *KeysetStore) GetKeysets() ([]keyset.Keyset, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, unit, active, max_order, derivation_path_idx, input_fee_ppk, public_keys FROM keysets
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []keyset.Keyset
	for rows.Next() {
		var idHex, unit string
		var active bool
		var maxOrder int
		var derivationIdx uint32
		var feePpk int16
		var pubkeysJSON []byte

		if err := rows.Scan(&idHex, &unit, &active, &maxOrder, &derivationIdx, &feePpk, &pubkeysJSON); err != nil {
			return nil, err
		}

		id, err := keyset.IDFromHex(idHex)
		if err != nil {
			return nil, err
		}

		var pubkeys crypto.PublicKeys
		if err := json.Unmarshal(pubkeysJSON, &pubkeys); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshaling keyset %s public keys: %w", idHex, err)
		}

		out = append(out, keyset.Keyset{
			ID:                id,
			Unit:              unit,
			Active:            active,
			MaxOrder:          maxOrder,
			DerivationPathIdx: derivationIdx,
			InputFeePpk:       feePpk,
			PublicKeys:        pubkeys,
		})
	}
	return out, rows.Err()
}

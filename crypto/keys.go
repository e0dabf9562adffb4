package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PublicKeys maps a denomination (2^i) to the keyset's public key for
// that slot. It marshals to JSON sorted by amount for deterministic
// wire output, as wallets diff keysets by their serialized form.
type PublicKeys map[uint64]*secp256k1.PublicKey

func (pks PublicKeys) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	amounts := make([]uint64, 0, len(pks))
	for amount := range pks {
		amounts = append(amounts, amount)
	}
	slices.Sort(amounts)

	for i, amount := range amounts {
		if i != 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":"%s"`, amount, hex.EncodeToString(pks[amount].SerializeCompressed()))
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (pks *PublicKeys) UnmarshalJSON(data []byte) error {
	var raw map[uint64]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(PublicKeys, len(raw))
	for amount, hexKey := range raw {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return fmt.Errorf("crypto: invalid public key hex for amount %d: %w", amount, err)
		}
		pubkey, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return fmt.Errorf("crypto: invalid public key for amount %d: %w", amount, err)
		}
		out[amount] = pubkey
	}

	*pks = out
	return nil
}

// SortedCompressed returns the keyset's public keys concatenated in
// ascending amount order, the input to the keyset id hash (spec §4.B).
func (pks PublicKeys) SortedCompressed() []byte {
	amounts := make([]uint64, 0, len(pks))
	for amount := range pks {
		amounts = append(amounts, amount)
	}
	slices.Sort(amounts)

	out := make([]byte, 0, len(amounts)*33)
	for _, amount := range amounts {
		out = append(out, pks[amount].SerializeCompressed()...)
	}
	return out
}

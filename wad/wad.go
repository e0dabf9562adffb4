// Package wad implements the node's proof wire format: a proof is
// {amount, id, secret, C}, and a wad bundles a node URL with a list of
// proofs into a single "paynet"-prefixed base64 blob. Grounded on
// cashu/cashu.go's TokenV4 in the teacher: CBOR body,
// base64.RawURLEncoding, a short ASCII version prefix — generalized
// from the teacher's "cashuB" prefix to "paynet".
package wad

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/paynet-xyz/paynet-mint/keyset"
)

const prefix = "paynet"

var (
	ErrInvalidPrefix = errors.New("wad: missing or unrecognized version prefix")
	ErrEmpty         = errors.New("wad: no proofs")
)

// Proof is the round-trippable wire shape of a spendable token.
type Proof struct {
	Amount uint64 `cbor:"a"`
	ID     []byte `cbor:"i"` // 8-byte keyset id
	Secret string `cbor:"s"`
	C      []byte `cbor:"c"` // 33-byte compressed point
}

// Wad is a node URL plus the proofs it issued.
type Wad struct {
	NodeURL string  `cbor:"n"`
	Unit    string  `cbor:"u"`
	Proofs  []Proof `cbor:"p"`
}

// Encode serializes a Wad to its canonical "paynet<base64(cbor)>" form.
func Encode(w Wad) (string, error) {
	if len(w.Proofs) == 0 {
		return "", ErrEmpty
	}
	data, err := cbor.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("wad: cbor marshal: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a "paynet..."-prefixed wad string back into a Wad.
func Decode(s string) (Wad, error) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return Wad{}, ErrInvalidPrefix
	}

	data, err := base64.RawURLEncoding.DecodeString(s[len(prefix):])
	if err != nil {
		// some encoders pad; tolerate standard URL encoding too
		data, err = base64.URLEncoding.DecodeString(s[len(prefix):])
		if err != nil {
			return Wad{}, fmt.Errorf("wad: base64 decode: %w", err)
		}
	}

	var w Wad
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Wad{}, fmt.Errorf("wad: cbor unmarshal: %w", err)
	}
	if len(w.Proofs) == 0 {
		return Wad{}, ErrEmpty
	}
	return w, nil
}

// KeysetID parses a Proof's raw id bytes into a keyset.ID.
func (p Proof) KeysetID() (keyset.ID, error) {
	var id keyset.ID
	if len(p.ID) != len(id) {
		return id, fmt.Errorf("wad: proof id must be %d bytes, got %d", len(id), len(p.ID))
	}
	copy(id[:], p.ID)
	return id, nil
}

// CHex returns the proof's signature point as a hex string.
func (p Proof) CHex() string {
	return hex.EncodeToString(p.C)
}

// Package keyset derives, caches and rotates per-unit signing
// keysets. A keyset bundles one public key per power-of-two
// denomination; the corresponding private keys never leave the
// signer (see signerclient).
package keyset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/paynet-xyz/paynet-mint/crypto"
)

// ID is the 8-byte fingerprint of a keyset's public keys plus unit.
type ID [8]byte

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func IDFromHex(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("keyset: id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Keyset is an ordered collection of signing key-pairs, one per
// power-of-two denomination, scoped to a single unit.
type Keyset struct {
	ID                ID
	Unit              string
	Active            bool
	MaxOrder          int
	DerivationPathIdx uint32
	InputFeePpk       int16
	PublicKeys        crypto.PublicKeys
}

// DeriveID computes id = first_8_bytes(SHA256(concat(sorted pubkeys) || unit)),
// per the spec's keyset fingerprint rule. Two keysets are equal iff
// their ids match, so callers must reject duplicate ids on insert.
func DeriveID(pubkeys crypto.PublicKeys, unit string) ID {
	h := sha256.New()
	h.Write(pubkeys.SortedCompressed())
	h.Write([]byte(unit))
	sum := h.Sum(nil)

	var id ID
	copy(id[:], sum[:len(id)])
	return id
}

// UnitTag is a stable 31-bit hash of a unit string, used as the
// hardened child index that separates one unit's derivation subtree
// from another's under the signer's master key.
func UnitTag(unit string) uint32 {
	h := sha256.Sum256([]byte("paynet-unit-tag:" + unit))
	tag := binary.BigEndian.Uint32(h[:4])
	return tag &^ (1 << 31) // keep it a valid, non-hardened-overflowing 31-bit value
}

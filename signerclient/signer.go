// Package signerclient defines the narrow contract the node uses to
// reach the remote signer: the custodian of the master key, which
// derives per-denomination keys, blind-signs, verifies, and proves
// DLEQ over secp256k1. The node never holds a signing private key
// itself.
package signerclient

import (
	"context"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/crypto"
)

// Client is the capability set the keyset manager and quote engines
// depend on. Modeled on lightning.Client's role in the teacher: a
// small, swappable interface with a real gRPC implementation and a
// Fake used in tests.
type Client interface {
	// GenerateKeys derives maxOrder public keys at
	// m / unitTag / index / 0..maxOrder-1 and returns them ordered by
	// slot. The private keys stay inside the signer.
	GenerateKeys(ctx context.Context, unitTag uint32, index uint32, maxOrder int) ([]*secp256k1.PublicKey, error)

	// Sign blind-signs B_ with the private key for (unitTag, index, slot).
	Sign(ctx context.Context, unitTag uint32, index uint32, slot int, B_ *secp256k1.PublicKey) (*secp256k1.PublicKey, error)

	// Verify checks that C is a valid signature on secret under the
	// private key for (unitTag, index, slot).
	Verify(ctx context.Context, unitTag uint32, index uint32, slot int, secret []byte, C *secp256k1.PublicKey) (bool, error)

	// ProveDLEQ returns a Chaum-Pedersen proof that Sign used the same
	// key as was published by GenerateKeys for this slot.
	ProveDLEQ(ctx context.Context, unitTag uint32, index uint32, slot int, B_, C_ *secp256k1.PublicKey) (*crypto.DLEQProof, error)
}

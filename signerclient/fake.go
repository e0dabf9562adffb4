package signerclient

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/crypto"
)

// Fake is an in-memory Client for tests: it derives a private key per
// (unitTag, index, slot) deterministically from a seed, so the same
// triple always yields the same keypair across calls, mirroring a real
// signer's master-key derivation without holding any actual secret.
// Grounded on the teacher's lightning.FakeBackend shape.
type Fake struct {
	mu   sync.Mutex
	seed []byte
	keys map[triple]*secp256k1.PrivateKey
}

type triple struct {
	unitTag uint32
	index   uint32
	slot    int
}

func NewFake(seed []byte) *Fake {
	if len(seed) == 0 {
		seed = []byte("fake-signer-seed")
	}
	return &Fake{seed: seed, keys: make(map[triple]*secp256k1.PrivateKey)}
}

func (f *Fake) privateKey(t triple) *secp256k1.PrivateKey {
	f.mu.Lock()
	defer f.mu.Unlock()

	if k, ok := f.keys[t]; ok {
		return k
	}

	h := sha256.New()
	h.Write(f.seed)
	binary.Write(h, binary.BigEndian, t.unitTag)
	binary.Write(h, binary.BigEndian, t.index)
	binary.Write(h, binary.BigEndian, int64(t.slot))
	k := secp256k1.PrivKeyFromBytes(h.Sum(nil))

	f.keys[t] = k
	return k
}

func (f *Fake) GenerateKeys(ctx context.Context, unitTag uint32, index uint32, maxOrder int) ([]*secp256k1.PublicKey, error) {
	out := make([]*secp256k1.PublicKey, maxOrder)
	for slot := 0; slot < maxOrder; slot++ {
		out[slot] = f.privateKey(triple{unitTag, index, slot}).PubKey()
	}
	return out, nil
}

func (f *Fake) Sign(ctx context.Context, unitTag uint32, index uint32, slot int, B_ *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	return crypto.SignBlindedMessage(B_, f.privateKey(triple{unitTag, index, slot})), nil
}

func (f *Fake) Verify(ctx context.Context, unitTag uint32, index uint32, slot int, secret []byte, C *secp256k1.PublicKey) (bool, error) {
	return crypto.Verify(secret, f.privateKey(triple{unitTag, index, slot}), C)
}

func (f *Fake) ProveDLEQ(ctx context.Context, unitTag uint32, index uint32, slot int, B_, C_ *secp256k1.PublicKey) (*crypto.DLEQProof, error) {
	k := f.privateKey(triple{unitTag, index, slot})
	proof, err := crypto.GenerateDLEQ(k, k.PubKey(), B_, C_)
	if err != nil {
		return nil, fmt.Errorf("signerclient: generating DLEQ proof: %w", err)
	}
	return proof, nil
}

package swap_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/quote/swap"
	"github.com/paynet-xyz/paynet-mint/signerclient"
	"github.com/paynet-xyz/paynet-mint/store/sqlite"
)

type testEnv struct {
	engine *swap.Engine
	ldg    *ledger.Ledger
	signer *signerclient.Fake
	ks     keyset.Keyset
}

func newTestEnv(t *testing.T, feePpk int16) *testEnv {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	signer := signerclient.NewFake(nil)
	km, err := keyset.NewManager(signer, sqlite.NewKeysetStore(db), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ks, err := km.EnsureActive(context.Background(), "sat", 10, feePpk)
	if err != nil {
		t.Fatalf("EnsureActive: %v", err)
	}

	ldg := ledger.New(sqlite.NewLedgerStore(db))
	engine := swap.NewEngine(km, signer, ldg)
	return &testEnv{engine: engine, ldg: ldg, signer: signer, ks: ks}
}

func issueProof(t *testing.T, signer *signerclient.Fake, ks keyset.Keyset, amount uint64) swap.InputProof {
	t.Helper()
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		t.Fatalf("generating secret: %v", err)
	}
	secret := hex.EncodeToString(secretBytes)

	blindingFactor := make([]byte, 32)
	if _, err := rand.Read(blindingFactor); err != nil {
		t.Fatalf("generating blinding factor: %v", err)
	}

	B_, r, err := crypto.BlindMessage([]byte(secret), blindingFactor)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}

	tag := keyset.UnitTag(ks.Unit)
	slot, ok := crypto.SlotForAmount(amount)
	if !ok {
		t.Fatalf("amount %d is not a valid denomination", amount)
	}

	C_, err := signer.Sign(context.Background(), tag, ks.DerivationPathIdx, slot, B_)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	K, ok := ks.PublicKeys[amount]
	if !ok {
		t.Fatalf("keyset has no public key for amount %d", amount)
	}
	C := crypto.UnblindSignature(C_, r, K)

	Y, err := crypto.HashToCurve([]byte(secret))
	if err != nil {
		t.Fatalf("HashToCurve: %v", err)
	}

	return swap.InputProof{
		Amount:   amount,
		KeysetID: ks.ID,
		Secret:   secret,
		Y:        hex.EncodeToString(Y.SerializeCompressed()),
		C:        hex.EncodeToString(C.SerializeCompressed()),
	}
}

func blankOutput(t *testing.T, ks keyset.Keyset, amount uint64) swap.Output {
	t.Helper()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("generating secret: %v", err)
	}
	blindingFactor := make([]byte, 32)
	if _, err := rand.Read(blindingFactor); err != nil {
		t.Fatalf("generating blinding factor: %v", err)
	}
	B_, _, err := crypto.BlindMessage(secret, blindingFactor)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}
	return swap.Output{Amount: amount, KeysetID: ks.ID, B_: B_}
}

func TestSwapExactAmountNoFee(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	input := issueProof(t, env.signer, env.ks, 8)
	outputs := []swap.Output{blankOutput(t, env.ks, 4), blankOutput(t, env.ks, 4)}

	sigs, err := env.engine.Swap(ctx, []swap.InputProof{input}, outputs)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}

	spent, err := env.ldg.IsSpent(ctx, []string{input.Y})
	if err != nil {
		t.Fatalf("IsSpent: %v", err)
	}
	if !spent[input.Y] {
		t.Fatal("expected the swapped input to be permanently spent")
	}
}

func TestSwapWithFee(t *testing.T) {
	env := newTestEnv(t, 1000) // 1000 ppk = 100%, fee == sum(inputs)
	ctx := context.Background()

	input := issueProof(t, env.signer, env.ks, 8)
	outputs := []swap.Output{blankOutput(t, env.ks, 4)}

	_, err := env.engine.Swap(ctx, []swap.InputProof{input}, outputs)
	if err == nil {
		t.Fatal("expected swap to fail when fee consumes the rest of the input value")
	}
}

func TestSwapRejectsDoubleSpend(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	input := issueProof(t, env.signer, env.ks, 4)
	outputs := []swap.Output{blankOutput(t, env.ks, 4)}

	if _, err := env.engine.Swap(ctx, []swap.InputProof{input}, outputs); err != nil {
		t.Fatalf("first Swap: %v", err)
	}

	outputs2 := []swap.Output{blankOutput(t, env.ks, 4)}
	if _, err := env.engine.Swap(ctx, []swap.InputProof{input}, outputs2); err == nil {
		t.Fatal("expected reusing a spent input to be rejected")
	}
}

func TestSwapRejectsForgedProof(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	forged := swap.InputProof{
		Amount:   4,
		KeysetID: env.ks.ID,
		Secret:   "not-really-signed",
		Y:        "y-forged",
		C:        "02" + hexZeros32(),
	}
	outputs := []swap.Output{blankOutput(t, env.ks, 4)}

	if _, err := env.engine.Swap(ctx, []swap.InputProof{forged}, outputs); err == nil {
		t.Fatal("expected a forged proof to be rejected")
	}
}

func hexZeros32() string {
	// a syntactically valid but off-curve x-coordinate, just to exercise
	// the invalid-point rejection path
	b := make([]byte, 32)
	return hex.EncodeToString(b)
}

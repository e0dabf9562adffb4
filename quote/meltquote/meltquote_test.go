package meltquote_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/signerclient"
	"github.com/paynet-xyz/paynet-mint/store/sqlite"
)

type testEnv struct {
	engine  *meltquote.Engine
	ldg     *ledger.Ledger
	ks      keyset.Keyset
	signer  *signerclient.Fake
	cashier *cashierclient.Fake
}

func newTestEnv(t *testing.T, fee uint64) *testEnv {
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
	ks, err := km.EnsureActive(context.Background(), "sat", 10, 0)
	if err != nil {
		t.Fatalf("EnsureActive: %v", err)
	}

	ldg := ledger.New(sqlite.NewLedgerStore(db))
	cashier := cashierclient.NewFake()
	cashierFor := func(unit string) (cashierclient.Client, error) { return cashier, nil }
	estimateFee := func(unit, destination string, amount uint64) (uint64, error) { return fee, nil }

	engine := meltquote.NewEngine(sqlite.NewMeltQuoteStore(db), cashierFor, ldg, km, signer, estimateFee)
	return &testEnv{engine: engine, ldg: ldg, ks: ks, signer: signer, cashier: cashier}
}

// issueProof plays the client side of a blind/sign/unblind round trip
// against the test signer, producing a proof the engine's verifyInputs
// step will accept, mirroring how a real proof a wallet spends was
// minted in the first place.
func issueProof(t *testing.T, signer *signerclient.Fake, ks keyset.Keyset, amount uint64) meltquote.InputProof {
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

	return meltquote.InputProof{
		Amount:   amount,
		KeysetID: ks.ID,
		Secret:   secret,
		Y:        hex.EncodeToString(Y.SerializeCompressed()),
		C:        hex.EncodeToString(C.SerializeCompressed()),
	}
}

func TestMeltQuoteHappyPath(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", "addr-1", 10)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}
	if q.FeeReserve != 2 {
		t.Fatalf("expected fee reserve 2, got %d", q.FeeReserve)
	}

	input := issueProof(t, env.signer, env.ks, 16)
	got, err := env.engine.Melt(ctx, q.ID, []meltquote.InputProof{input})
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if got.State != meltquote.Pending {
		t.Fatalf("expected PENDING after Melt, got %s", got.State)
	}

	if err := env.engine.ConfirmWithdrawal(ctx, q.ID, "onchain-proof"); err != nil {
		t.Fatalf("ConfirmWithdrawal: %v", err)
	}

	final, err := env.engine.State(ctx, q.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if final.State != meltquote.Paid {
		t.Fatalf("expected PAID after ConfirmWithdrawal, got %s", final.State)
	}
	if final.PaymentProof != "onchain-proof" {
		t.Fatalf("expected payment proof to be recorded, got %q", final.PaymentProof)
	}

	spent, err := env.ldg.IsSpent(ctx, []string{input.Y})
	if err != nil {
		t.Fatalf("IsSpent: %v", err)
	}
	if !spent[input.Y] {
		t.Fatal("expected proof to be permanently spent after settlement")
	}
}

func TestMeltRejectsForgedProof(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", "addr-1", 8)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}

	forged := meltquote.InputProof{Amount: 8, KeysetID: env.ks.ID, Secret: "made-up-secret", Y: "y-forged", C: "0200000000000000000000000000000000000000000000000000000000000001"}
	_, err = env.engine.Melt(ctx, q.ID, []meltquote.InputProof{forged})
	if err == nil {
		t.Fatal("expected a forged proof (C not produced by the signer) to be rejected")
	}
}

func TestMeltInsufficientInputs(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", "addr-1", 10)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}

	input := issueProof(t, env.signer, env.ks, 4)
	_, err = env.engine.Melt(ctx, q.ID, []meltquote.InputProof{input})
	if err == nil {
		t.Fatal("expected insufficient inputs to be rejected")
	}
	var cashuErr *cashuerr.Error
	if e, ok := err.(*cashuerr.Error); ok {
		cashuErr = e
	}
	if cashuErr == nil || cashuErr.Code != cashuerr.Insufficient.Code {
		t.Fatalf("expected Insufficient, got %v", err)
	}
}

func TestMeltCashierRejectionRollsBack(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", "bad-dest", 8)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}
	env.cashier.FailDestination("bad-dest")

	input := issueProof(t, env.signer, env.ks, 8)
	_, err = env.engine.Melt(ctx, q.ID, []meltquote.InputProof{input})
	if err == nil {
		t.Fatal("expected cashier rejection to surface as an error")
	}

	rolledBack, err := env.engine.State(ctx, q.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if rolledBack.State != meltquote.Unpaid {
		t.Fatalf("expected quote to roll back to UNPAID, got %s", rolledBack.State)
	}

	// The held proof must be spendable again after rollback.
	if err := env.ldg.Consume(ctx, []ledger.Proof{
		{Amount: input.Amount, KeysetID: input.KeysetID, Secret: input.Secret, Y: input.Y, C: input.C},
	}, "elsewhere"); err != nil {
		t.Fatalf("expected rolled-back proof to be consumable elsewhere, got: %v", err)
	}
}

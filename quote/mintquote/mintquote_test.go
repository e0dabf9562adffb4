package mintquote_test

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
	"github.com/paynet-xyz/paynet-mint/signerclient"
	"github.com/paynet-xyz/paynet-mint/store/sqlite"
)

type testEnv struct {
	engine  *mintquote.Engine
	keysets *keyset.Manager
	ks      keyset.Keyset
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	km, err := keyset.NewManager(signerclient.NewFake(nil), sqlite.NewKeysetStore(db), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ks, err := km.EnsureActive(context.Background(), "sat", 10, 0)
	if err != nil {
		t.Fatalf("EnsureActive: %v", err)
	}

	ldg := ledger.New(sqlite.NewLedgerStore(db))
	depositAddr := func(unit string) (string, error) { return "addr-" + unit, nil }

	engine := mintquote.NewEngine(sqlite.NewMintQuoteStore(db), km, signerclient.NewFake(nil), ldg, depositAddr)
	return &testEnv{engine: engine, keysets: km, ks: ks}
}

func blindOutput(t *testing.T, ks keyset.Keyset, amount uint64) mintquote.BlindedMessage {
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
	return mintquote.BlindedMessage{Amount: amount, KeysetID: ks.ID, B_: B_}
}

func TestMintQuoteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", 8)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}
	if q.State != mintquote.Unpaid {
		t.Fatalf("expected a new quote to be UNPAID, got %s", q.State)
	}

	if _, err := env.engine.Mint(ctx, q.ID, []mintquote.BlindedMessage{blindOutput(t, env.ks, 8)}); err == nil {
		t.Fatal("expected Mint against an UNPAID quote to fail")
	}

	if err := env.engine.ObserveDeposit(ctx, q.InvoiceID, 8, q.Expiry.Add(-1)); err != nil {
		t.Fatalf("ObserveDeposit: %v", err)
	}

	paid, err := env.engine.State(ctx, q.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if paid.State != mintquote.Paid {
		t.Fatalf("expected PAID after a matching deposit, got %s", paid.State)
	}

	out := blindOutput(t, env.ks, 8)
	sigs, err := env.engine.Mint(ctx, q.ID, []mintquote.BlindedMessage{out})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if len(sigs) != 1 || sigs[0].Amount != 8 {
		t.Fatalf("unexpected signatures: %+v", sigs)
	}

	issued, err := env.engine.State(ctx, q.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if issued.State != mintquote.Issued {
		t.Fatalf("expected ISSUED after Mint, got %s", issued.State)
	}

	// Retrying Mint with the same blinded output on an ISSUED quote
	// must replay the stored signature rather than error.
	replay, err := env.engine.Mint(ctx, q.ID, []mintquote.BlindedMessage{out})
	if err != nil {
		t.Fatalf("Mint (replay): %v", err)
	}
	if replay[0].C.IsEqual(sigs[0].C) == false {
		t.Fatal("expected replayed signature to match the original")
	}

	// Asking an ISSUED quote for a brand new output must fail.
	if _, err := env.engine.Mint(ctx, q.ID, []mintquote.BlindedMessage{blindOutput(t, env.ks, 8)}); err == nil {
		t.Fatal("expected Mint against an ISSUED quote with a new output to fail")
	}
}

func TestMintQuoteUnderpaymentLeavesUnpaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", 16)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}

	if err := env.engine.ObserveDeposit(ctx, q.InvoiceID, 8, q.Expiry.Add(-1)); err != nil {
		t.Fatalf("ObserveDeposit: %v", err)
	}

	got, err := env.engine.State(ctx, q.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got.State != mintquote.Unpaid {
		t.Fatalf("expected an underpaid quote to remain UNPAID, got %s", got.State)
	}
}

func TestMintAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	q, err := env.engine.NewQuote(ctx, "sat", 8)
	if err != nil {
		t.Fatalf("NewQuote: %v", err)
	}
	if err := env.engine.ObserveDeposit(ctx, q.InvoiceID, 8, q.Expiry.Add(-1)); err != nil {
		t.Fatalf("ObserveDeposit: %v", err)
	}

	_, err = env.engine.Mint(ctx, q.ID, []mintquote.BlindedMessage{blindOutput(t, env.ks, 4)})
	if err == nil {
		t.Fatal("expected a mismatched output sum to be rejected")
	}
	var cashuErr *cashuerr.Error
	if !errors.As(err, &cashuErr) || cashuErr.Code != cashuerr.AmountMismatch.Code {
		t.Fatalf("expected AmountMismatch, got %v", err)
	}
}

func TestNewQuoteRejectsUnsupportedUnit(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.NewQuote(context.Background(), "eur", 8)
	if err == nil {
		t.Fatal("expected an unsupported unit to be rejected")
	}
}

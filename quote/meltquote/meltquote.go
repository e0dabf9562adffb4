// Package meltquote implements the melt quote state machine:
// UNPAID -> PENDING -> PAID (or PENDING -> UNPAID on cashier
// rejection), grounded on the melt-side plumbing inferred from
// mint.go and cashu/nuts/nut05 in the teacher.
package meltquote

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

// Expiry is how long a melt quote remains payable while UNPAID.
const Expiry = time.Hour

type State int

const (
	Unpaid State = iota
	Pending
	Paid
)

func (s State) String() string {
	switch s {
	case Unpaid:
		return "UNPAID"
	case Pending:
		return "PENDING"
	case Paid:
		return "PAID"
	default:
		return "UNKNOWN"
	}
}

type Quote struct {
	ID            string
	Unit          string
	Amount        uint64
	FeeReserve    uint64
	Destination   string
	State         State
	Expiry        time.Time
	WithdrawalRef string
	PaymentProof  string
}

// FeeEstimator estimates the on-chain withdrawal fee for a melt to
// destination for amount units.
type FeeEstimator func(unit, destination string, amount uint64) (uint64, error)

// Store is the persistence boundary for melt quotes.
type Store interface {
	Save(ctx context.Context, q Quote) error
	Get(ctx context.Context, id string) (Quote, error)
	UpdateState(ctx context.Context, id string, state State) error
	MarkPending(ctx context.Context, id string, withdrawalRef string) error
	MarkPaid(ctx context.Context, id string, paymentProof string) error
}

// InputProof is one proof a client spends to pay a melt quote.
type InputProof struct {
	Amount   uint64
	KeysetID keyset.ID
	Secret   string
	Y        string
	C        string
}

// CashierFor resolves the cashier client that serves a given unit. A
// node dials one cashier per unit (a payout rail is unit-specific), so
// the engine asks for the right one per quote rather than holding a
// single Client.
type CashierFor func(unit string) (cashierclient.Client, error)

type Engine struct {
	store       Store
	cashierFor  CashierFor
	ledger      *ledger.Ledger
	keysets     *keyset.Manager
	signer      signerclient.Client
	estimateFee FeeEstimator
}

func NewEngine(store Store, cashierFor CashierFor, ldg *ledger.Ledger, keysets *keyset.Manager, signer signerclient.Client, estimateFee FeeEstimator) *Engine {
	return &Engine{store: store, cashierFor: cashierFor, ledger: ldg, keysets: keysets, signer: signer, estimateFee: estimateFee}
}

func (e *Engine) NewQuote(ctx context.Context, unit, destination string, amount uint64) (Quote, error) {
	if amount == 0 || destination == "" {
		return Quote{}, &cashuerr.InvalidRequest
	}
	if _, err := e.keysets.Active(unit); err != nil {
		return Quote{}, &cashuerr.UnsupportedUnit
	}

	fee, err := e.estimateFee(unit, destination, amount)
	if err != nil {
		return Quote{}, &cashuerr.InvalidRequest
	}

	q := Quote{
		ID:          uuid.NewString(),
		Unit:        unit,
		Amount:      amount,
		FeeReserve:  fee,
		Destination: destination,
		State:       Unpaid,
		Expiry:      time.Now().Add(Expiry),
	}
	if err := e.store.Save(ctx, q); err != nil {
		return Quote{}, fmt.Errorf("meltquote: saving new quote: %w", err)
	}
	return q, nil
}

func (e *Engine) State(ctx context.Context, id string) (Quote, error) {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return Quote{}, &cashuerr.UnknownQuote
	}
	return q, nil
}

// inputSum totals the amounts of a set of melt input proofs for the
// required-amount check; it does not validate them.
func inputSum(proofs []InputProof) uint64 {
	var sum uint64
	for _, p := range proofs {
		sum += p.Amount
	}
	return sum
}

// inputFee computes ceil(sum_inputs * ppk / 1000) against the maximum
// input_fee_ppk among the input keysets (spec §4.C "Fee policy"),
// mirroring swap.Engine.fee.
func inputFee(keysets *keyset.Manager, proofs []InputProof) (uint64, error) {
	var maxPpk int16
	var sumIn uint64
	for _, p := range proofs {
		ks, err := keysets.Lookup(p.KeysetID)
		if err != nil {
			return 0, &cashuerr.UnknownKeyset
		}
		if ks.InputFeePpk > maxPpk {
			maxPpk = ks.InputFeePpk
		}
		sumIn += p.Amount
	}
	if maxPpk <= 0 {
		return 0, nil
	}
	return (sumIn*uint64(maxPpk) + 999) / 1000, nil
}

// Melt consumes proofs, transitions the quote to PENDING, and submits
// the withdrawal. A synchronous cashier rejection rolls the proofs
// back and the quote back to UNPAID.
func (e *Engine) Melt(ctx context.Context, id string, proofs []InputProof) (Quote, error) {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return Quote{}, &cashuerr.UnknownQuote
	}
	if q.State != Unpaid {
		return Quote{}, &cashuerr.QuoteNotPaid
	}
	if time.Now().After(q.Expiry) {
		return Quote{}, &cashuerr.Expired
	}

	ppkFee, err := inputFee(e.keysets, proofs)
	if err != nil {
		return Quote{}, err
	}
	required := q.Amount + q.FeeReserve + ppkFee
	if inputSum(proofs) < required {
		return Quote{}, &cashuerr.Insufficient
	}

	if err := verifyInputs(ctx, e.signer, e.keysets, proofs); err != nil {
		return Quote{}, err
	}

	ref := ledger.PendingRef("melt:" + q.ID)
	ledgerProofs := toLedgerProofs(proofs)

	if err := e.ledger.Hold(ctx, ledgerProofs, ref); err != nil {
		return Quote{}, err
	}

	if err := e.store.UpdateState(ctx, q.ID, Pending); err != nil {
		_ = e.ledger.Finalize(ctx, ref, ledger.OutcomeReleased)
		return Quote{}, fmt.Errorf("meltquote: transitioning to PENDING: %w", err)
	}

	cashier, err := e.cashierFor(q.Unit)
	if err != nil {
		_ = e.ledger.Finalize(ctx, ref, ledger.OutcomeReleased)
		_ = e.store.UpdateState(ctx, q.ID, Unpaid)
		return Quote{}, cashuerr.Build(fmt.Sprintf("no cashier for unit %s: %v", q.Unit, err), cashuerr.CashierUnavailableCode)
	}

	if err := cashier.SubmitWithdrawal(ctx, q.ID, q.Destination, q.Amount); err != nil {
		// synchronous rejection: roll everything back (spec §4.D step 2, S3)
		_ = e.ledger.Finalize(ctx, ref, ledger.OutcomeReleased)
		_ = e.store.UpdateState(ctx, q.ID, Unpaid)
		return Quote{}, cashuerr.Build(fmt.Sprintf("cashier rejected withdrawal: %v", err), cashuerr.CashierUnavailableCode)
	}

	if err := e.store.MarkPending(ctx, q.ID, q.ID); err != nil {
		return Quote{}, fmt.Errorf("meltquote: recording withdrawal ref: %w", err)
	}

	q.State = Pending
	q.WithdrawalRef = q.ID
	return q, nil
}

// ConfirmWithdrawal is called by the correlator once the indexer
// reports the withdrawal settled on-chain: it finalizes the held
// proofs as spent and transitions the quote to PAID.
func (e *Engine) ConfirmWithdrawal(ctx context.Context, id, paymentProof string) error {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return &cashuerr.UnknownQuote
	}
	if q.State != Pending {
		return nil // already settled or never reached PENDING: no-op
	}

	ref := ledger.PendingRef("melt:" + q.ID)
	if err := e.ledger.Finalize(ctx, ref, ledger.OutcomeSpent); err != nil {
		return fmt.Errorf("meltquote: finalizing spent proofs: %w", err)
	}
	return e.store.MarkPaid(ctx, q.ID, paymentProof)
}

// Revert un-confirms a withdrawal whose settlement block was reorged
// off-chain: a PAID quote goes back to PENDING and its held proofs,
// which ConfirmWithdrawal had marked permanently spent, are returned
// to the spendable set so a later, correct-chain confirmation can
// finalize them again.
func (e *Engine) Revert(ctx context.Context, id string) error {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return &cashuerr.UnknownQuote
	}
	if q.State != Paid {
		return nil
	}

	ref := ledger.PendingRef("melt:" + q.ID)
	if err := e.ledger.Unspend(ctx, ref); err != nil {
		return fmt.Errorf("meltquote: unspending reverted proofs: %w", err)
	}
	return e.store.UpdateState(ctx, q.ID, Pending)
}

func toLedgerProofs(proofs []InputProof) []ledger.Proof {
	out := make([]ledger.Proof, len(proofs))
	for i, p := range proofs {
		out[i] = ledger.Proof{Amount: p.Amount, KeysetID: p.KeysetID, Secret: p.Secret, Y: p.Y, C: p.C}
	}
	return out
}

// verifyInputs checks the consume() pre-check from the ledger
// invariant (spec §4.B): every input's C must verify under its
// referenced keyset's private key before it can be held/spent. Shared
// in shape with swap's verifyInputs; kept separate because InputProof
// is a distinct type per engine.
func verifyInputs(ctx context.Context, signer signerclient.Client, keysets *keyset.Manager, inputs []InputProof) error {
	for _, p := range inputs {
		ks, err := keysets.Lookup(p.KeysetID)
		if err != nil {
			return &cashuerr.UnknownKeyset
		}
		slot, ok := crypto.SlotForAmount(p.Amount)
		if !ok || slot >= ks.MaxOrder {
			return &cashuerr.InvalidProof
		}
		cBytes, err := hex.DecodeString(p.C)
		if err != nil {
			return &cashuerr.InvalidProof
		}
		C, err := secp256k1.ParsePubKey(cBytes)
		if err != nil {
			return &cashuerr.InvalidProof
		}
		tag := keyset.UnitTag(ks.Unit)
		ok, err = signer.Verify(ctx, tag, ks.DerivationPathIdx, slot, []byte(p.Secret), C)
		if err != nil {
			return cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
		}
		if !ok {
			return &cashuerr.InvalidProof
		}
	}
	return nil
}

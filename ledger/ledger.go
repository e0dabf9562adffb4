// Package ledger guards the proof-spend invariant: no (Y) value is
// ever accepted twice. It generalizes the teacher's storage.MintDB
// proof methods into a focused Store boundary the quote engines drive
// through Consume/Finalize/RecordIssued.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/keyset"
)

// Proof is a spendable token the node is asked to redeem. Y is the
// hash-to-curve point of Secret, hex-encoded; it is the node's
// double-spend key, not Secret itself, so two proofs with different
// secrets but colliding points (which should never happen under
// HashToCurve) would still be caught.
type Proof struct {
	Amount    uint64
	KeysetID  keyset.ID
	Secret    string
	Y         string
	C         string
	DLEQProof []byte // optional, CBOR-encoded crypto.DLEQProof
}

// Outcome is what happened to a batch of proofs passed to Finalize.
type Outcome int

const (
	OutcomeSpent    Outcome = iota // proofs consumed permanently (swap/melt settled)
	OutcomeReleased                // proofs returned to the spendable set (melt rolled back)
)

// PendingRef associates a set of held proofs with the operation that
// is holding them, so a crash mid-melt can be reconciled on restart.
type PendingRef string

// BlindSignature is the signer's output on one blinded message,
// persisted keyed by B_ (the blinded point the client sent) so a
// retried Mint call with the same outputs can replay the stored
// C without calling the signer again (spec §5 idempotency contract).
type BlindSignature struct {
	B_        string
	Amount    uint64
	KeysetID  keyset.ID
	C         string
	DLEQProof []byte
}

// Store is the persistence boundary the sqlite implementation
// satisfies. Every method must run inside a serializable transaction:
// Consume in particular must be atomic across its whole batch or two
// concurrent redemptions of the same proof could both succeed.
type Store interface {
	// Consume atomically checks that every proof in ys is unspent and
	// marks them permanently spent, attributing the spend to ref. It
	// returns cashuerr.DoubleSpend if any is already spent.
	Consume(ctx context.Context, proofs []Proof, ref PendingRef) error

	// Hold atomically checks that every proof in ys is unspent and
	// marks them pending (reserved, not yet final) under ref, for melt's
	// UNPAID->PENDING transition. Returns cashuerr.DoubleSpend on
	// conflict.
	Hold(ctx context.Context, proofs []Proof, ref PendingRef) error

	// Finalize resolves proofs previously held under ref: OutcomeSpent
	// makes the hold permanent, OutcomeReleased frees them back to the
	// spendable set (idempotent, callable after a crash with only ref
	// known).
	Finalize(ctx context.Context, ref PendingRef, outcome Outcome) error

	// IsSpent reports which of the given Y values are already
	// permanently spent, for NUT-07-style CheckState queries.
	IsSpent(ctx context.Context, ys []string) (map[string]bool, error)

	// RecordIssued records newly minted blind signatures against their
	// keyset, for supply accounting (GetIssuedEcash equivalent).
	RecordIssued(ctx context.Context, keysetID keyset.ID, amount uint64) error

	// SaveBlindSignatures inserts sigs for quoteID. At-most-once by B_:
	// rows whose B_ already exists are left untouched (not an error),
	// and GetBlindSignatures can be used afterward to fetch the
	// (possibly pre-existing) stored value — this is what makes Mint
	// idempotent under retry.
	SaveBlindSignatures(ctx context.Context, quoteID string, sigs []BlindSignature) error

	// GetBlindSignatures returns whichever of the given B_ values have
	// already been issued, for replaying an idempotent Mint response.
	GetBlindSignatures(ctx context.Context, bs []string) (map[string]BlindSignature, error)

	// ReleaseStalePending deletes PENDING proofs held under a ref
	// matching refPrefix, older than olderThan, returning how many
	// proofs were swept. Used by the background sweeper to reclaim
	// proofs orphaned by a disconnect between Hold and Finalize (spec
	// §5 "Cancellation").
	ReleaseStalePending(ctx context.Context, refPrefix string, olderThan time.Time) (int, error)

	// Unspend deletes the permanently-SPENT proofs held under ref,
	// returning them to the spendable set. Only used to unwind a melt
	// whose confirming withdrawal was reorged off-chain (spec §4.E
	// revert): the chain told the node the proofs were definitively
	// spent, then retracted that.
	Unspend(ctx context.Context, ref PendingRef) error
}

// Ledger is the node-facing API quote engines call; it wraps Store
// with the retry policy transient DB errors need (see
// cashuerr.WithRetry / DBRetryLimit).
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Consume(ctx context.Context, proofs []Proof, ref PendingRef) error {
	err := cashuerr.WithRetry(ctx, cashuerr.DBRetryLimit, func() error {
		return l.store.Consume(ctx, proofs, ref)
	})
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (l *Ledger) Hold(ctx context.Context, proofs []Proof, ref PendingRef) error {
	err := cashuerr.WithRetry(ctx, cashuerr.DBRetryLimit, func() error {
		return l.store.Hold(ctx, proofs, ref)
	})
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (l *Ledger) Finalize(ctx context.Context, ref PendingRef, outcome Outcome) error {
	return cashuerr.WithRetry(ctx, cashuerr.DBRetryLimit, func() error {
		return l.store.Finalize(ctx, ref, outcome)
	})
}

func (l *Ledger) IsSpent(ctx context.Context, ys []string) (map[string]bool, error) {
	return l.store.IsSpent(ctx, ys)
}

func (l *Ledger) RecordIssued(ctx context.Context, keysetID keyset.ID, amount uint64) error {
	return l.store.RecordIssued(ctx, keysetID, amount)
}

func (l *Ledger) SaveBlindSignatures(ctx context.Context, quoteID string, sigs []BlindSignature) error {
	return cashuerr.WithRetry(ctx, cashuerr.DBRetryLimit, func() error {
		return l.store.SaveBlindSignatures(ctx, quoteID, sigs)
	})
}

func (l *Ledger) GetBlindSignatures(ctx context.Context, bs []string) (map[string]BlindSignature, error) {
	return l.store.GetBlindSignatures(ctx, bs)
}

func (l *Ledger) ReleaseStalePending(ctx context.Context, refPrefix string, olderThan time.Time) (int, error) {
	return l.store.ReleaseStalePending(ctx, refPrefix, olderThan)
}

func (l *Ledger) Unspend(ctx context.Context, ref PendingRef) error {
	return cashuerr.WithRetry(ctx, cashuerr.DBRetryLimit, func() error {
		return l.store.Unspend(ctx, ref)
	})
}

// wrapDBErr passes cashuerr.Error through unchanged; anything else
// surfaces as DB_CONTENTION. WithRetry only retries retriable
// cashuerr values, so a plain store error reaches here after a single
// attempt.
func wrapDBErr(err error) error {
	var cashuErr *cashuerr.Error
	if errors.As(err, &cashuErr) {
		return cashuErr
	}
	return cashuerr.Build(fmt.Sprintf("ledger: %v", err), cashuerr.DBContentionCode)
}

// Package mintquote implements the mint quote state machine:
// UNPAID -> PAID -> ISSUED, grounded on mint.go's
// RequestMintQuote/GetMintQuoteState/MintTokens in the teacher.
package mintquote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

// Expiry is how long a mint quote remains payable while UNPAID.
const Expiry = time.Hour

type State int

const (
	Unpaid State = iota
	Paid
	Issued
)

func (s State) String() string {
	switch s {
	case Unpaid:
		return "UNPAID"
	case Paid:
		return "PAID"
	case Issued:
		return "ISSUED"
	default:
		return "UNKNOWN"
	}
}

// Quote is a server-tracked intent to mint amount units against an
// on-chain deposit. InvoiceID is embedded in the deposit so the
// correlator can find this quote from a chain event.
type Quote struct {
	ID             string
	Unit           string
	Amount         uint64
	DepositAddress string
	InvoiceID      string
	State          State
	Expiry         time.Time
	PaidAmount     uint64
}

func (q Quote) Expired(now time.Time) bool {
	return q.State == Unpaid && now.After(q.Expiry)
}

// InvoiceIDFor derives the bit-exact invoice_id embedded in the
// on-chain deposit: H(quote id).
func InvoiceIDFor(quoteID string) string {
	h := sha256.Sum256([]byte(quoteID))
	return hex.EncodeToString(h[:])
}

// BlindedMessage is what a client submits for one output slot of a
// Mint call.
type BlindedMessage struct {
	Amount   uint64
	KeysetID keyset.ID
	B_       *secp256k1.PublicKey
}

// Signature is what the node returns for one minted output.
type Signature struct {
	Amount    uint64
	KeysetID  keyset.ID
	C         *secp256k1.PublicKey
	DLEQProof *crypto.DLEQProof
}

// Store is the persistence boundary for mint quotes.
type Store interface {
	Save(ctx context.Context, q Quote) error
	Get(ctx context.Context, id string) (Quote, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (Quote, error)
	UpdateState(ctx context.Context, id string, state State) error
	MarkPaid(ctx context.Context, id string, paidAmount uint64) error
}

// DepositAddressFor resolves the on-chain address quotes for unit
// should be paid to. Static per-unit configuration (spec §9
// "Polymorphism" — unit -> backend mapping).
type DepositAddressFor func(unit string) (string, error)

type Engine struct {
	store          Store
	keysets        *keyset.Manager
	signer         signerclient.Client
	ledger         *ledger.Ledger
	depositAddress DepositAddressFor
}

func NewEngine(store Store, keysets *keyset.Manager, signer signerclient.Client, ldg *ledger.Ledger, depositAddress DepositAddressFor) *Engine {
	return &Engine{store: store, keysets: keysets, signer: signer, ledger: ldg, depositAddress: depositAddress}
}

// NewQuote creates a fresh UNPAID mint quote for unit/amount.
func (e *Engine) NewQuote(ctx context.Context, unit string, amount uint64) (Quote, error) {
	if amount == 0 {
		return Quote{}, &cashuerr.InvalidRequest
	}
	if _, err := e.keysets.Active(unit); err != nil {
		return Quote{}, &cashuerr.UnsupportedUnit
	}

	address, err := e.depositAddress(unit)
	if err != nil {
		return Quote{}, &cashuerr.UnsupportedUnit
	}

	id := uuid.NewString()
	q := Quote{
		ID:             id,
		Unit:           unit,
		Amount:         amount,
		DepositAddress: address,
		InvoiceID:      InvoiceIDFor(id),
		State:          Unpaid,
		Expiry:         time.Now().Add(Expiry),
	}

	if err := e.store.Save(ctx, q); err != nil {
		return Quote{}, fmt.Errorf("mintquote: saving new quote: %w", err)
	}
	return q, nil
}

// State returns the quote as stored. Expiry is not applied here: an
// UNPAID quote past its expiry is still reported as UNPAID (see
// Quote.Expired).
func (e *Engine) State(ctx context.Context, id string) (Quote, error) {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return Quote{}, &cashuerr.UnknownQuote
	}
	return q, nil
}

// ObserveDeposit is called by the correlator when a chain event
// matches this quote's invoice id. Underpayment leaves the quote
// UNPAID; overpayment is accepted at the requested amount per spec
// §4.D step 2 (excess not refunded by this engine).
func (e *Engine) ObserveDeposit(ctx context.Context, invoiceID string, depositedAmount uint64, observedAt time.Time) error {
	q, err := e.store.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil // no matching quote: not an error, just nothing to do
	}
	if q.State != Unpaid {
		return nil
	}
	if observedAt.After(q.Expiry) {
		return nil
	}
	if depositedAmount < q.Amount {
		return nil
	}
	return e.store.MarkPaid(ctx, q.ID, depositedAmount)
}

// Revert un-confirms a deposit whose block was reorged off-chain: the
// quote with invoiceID (the correlation key the correlator recorded),
// if still PAID (not yet ISSUED), goes back to UNPAID so a later,
// correct-chain confirmation can re-mark it paid. A quote already
// ISSUED has handed out bearer tokens and cannot be unwound here.
func (e *Engine) Revert(ctx context.Context, invoiceID string) error {
	q, err := e.store.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return &cashuerr.UnknownQuote
	}
	if q.State != Paid {
		return nil
	}
	return e.store.UpdateState(ctx, q.ID, Unpaid)
}

// Mint validates outputs against a PAID quote, requests blind
// signatures from the signer, persists them, and transitions the
// quote to ISSUED. A retried call with the same outputs is
// idempotent: stored signatures are replayed without calling the
// signer again.
func (e *Engine) Mint(ctx context.Context, id string, outputs []BlindedMessage) ([]Signature, error) {
	q, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, &cashuerr.UnknownQuote
	}

	var sum uint64
	bKeys := make([]string, len(outputs))
	for i, o := range outputs {
		ks, err := e.keysets.Lookup(o.KeysetID)
		if err != nil {
			return nil, &cashuerr.UnknownKeyset
		}
		if !ks.Active || ks.Unit != q.Unit {
			return nil, &cashuerr.InactiveKeyset
		}
		slot, ok := crypto.SlotForAmount(o.Amount)
		if !ok || slot >= ks.MaxOrder {
			return nil, &cashuerr.InvalidBlindedMessage
		}
		sum += o.Amount
		bKeys[i] = hex.EncodeToString(o.B_.SerializeCompressed())
	}

	if q.State == Issued {
		return e.replayIssued(ctx, bKeys, outputs)
	}
	if q.State != Paid {
		return nil, &cashuerr.QuoteNotPaid
	}
	if sum != q.Amount {
		return nil, &cashuerr.AmountMismatch
	}

	existing, err := e.ledger.GetBlindSignatures(ctx, bKeys)
	if err != nil {
		return nil, fmt.Errorf("mintquote: checking prior issuance: %w", err)
	}

	sigs := make([]Signature, len(outputs))
	var toSave []ledger.BlindSignature
	for i, o := range outputs {
		if prior, ok := existing[bKeys[i]]; ok {
			sigs[i], err = signatureFromStored(prior)
			if err != nil {
				return nil, err
			}
			continue
		}

		tag := keyset.UnitTag(q.Unit)
		slot, _ := crypto.SlotForAmount(o.Amount)
		ks, _ := e.keysets.Lookup(o.KeysetID)

		C_, err := e.signer.Sign(ctx, tag, ks.DerivationPathIdx, slot, o.B_)
		if err != nil {
			return nil, cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
		}
		dleq, err := e.signer.ProveDLEQ(ctx, tag, ks.DerivationPathIdx, slot, o.B_, C_)
		if err != nil {
			return nil, cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
		}

		sigs[i] = Signature{Amount: o.Amount, KeysetID: o.KeysetID, C: C_, DLEQProof: dleq}
		toSave = append(toSave, ledger.BlindSignature{
			B_:       bKeys[i],
			Amount:   o.Amount,
			KeysetID: o.KeysetID,
			C:        hex.EncodeToString(C_.SerializeCompressed()),
		})
	}

	if len(toSave) > 0 {
		if err := e.ledger.SaveBlindSignatures(ctx, q.ID, toSave); err != nil {
			return nil, fmt.Errorf("mintquote: persisting issued signatures: %w", err)
		}
		for _, sig := range toSave {
			if err := e.ledger.RecordIssued(ctx, sig.KeysetID, sig.Amount); err != nil {
				return nil, fmt.Errorf("mintquote: recording issued supply: %w", err)
			}
		}
	}

	if err := e.store.UpdateState(ctx, q.ID, Issued); err != nil {
		return nil, fmt.Errorf("mintquote: transitioning to ISSUED: %w", err)
	}

	return sigs, nil
}

// replayIssued serves a retry of Mint against an already-ISSUED quote:
// every output must match a previously stored signature, or the
// client is asking for something new against a terminal quote.
func (e *Engine) replayIssued(ctx context.Context, bKeys []string, outputs []BlindedMessage) ([]Signature, error) {
	existing, err := e.ledger.GetBlindSignatures(ctx, bKeys)
	if err != nil {
		return nil, fmt.Errorf("mintquote: replaying issued signatures: %w", err)
	}

	sigs := make([]Signature, len(outputs))
	for i := range outputs {
		prior, ok := existing[bKeys[i]]
		if !ok {
			return nil, &cashuerr.QuoteAlreadyIssued
		}
		sigs[i], err = signatureFromStored(prior)
		if err != nil {
			return nil, err
		}
	}
	return sigs, nil
}

func signatureFromStored(b ledger.BlindSignature) (Signature, error) {
	cBytes, err := hex.DecodeString(b.C)
	if err != nil {
		return Signature{}, fmt.Errorf("mintquote: decoding stored signature: %w", err)
	}
	C, err := secp256k1.ParsePubKey(cBytes)
	if err != nil {
		return Signature{}, fmt.Errorf("mintquote: parsing stored signature: %w", err)
	}
	return Signature{Amount: b.Amount, KeysetID: b.KeysetID, C: C}, nil
}

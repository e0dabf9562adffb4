// Package swap implements the stateless atomic exchange operation:
// a set of existing proofs is consumed and an equal (minus fees)
// value of fresh blind signatures is issued in a single transaction.
// Grounded on mint.go's Swap in the teacher.
package swap

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

// verifyInputs checks the consume() pre-check from the ledger
// invariant (spec §4.B step on proofs): every input's C must verify
// under its referenced keyset's private key before it can be spent.
// Shared in shape with meltquote's verifyInputs; kept separate because
// InputProof is a distinct type per engine.
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

type InputProof struct {
	Amount   uint64
	KeysetID keyset.ID
	Secret   string
	Y        string
	C        string
}

type Output struct {
	Amount   uint64
	KeysetID keyset.ID
	B_       *secp256k1.PublicKey
}

type Signature struct {
	Amount    uint64
	KeysetID  keyset.ID
	C         *secp256k1.PublicKey
	DLEQProof *crypto.DLEQProof
}

type Engine struct {
	keysets *keyset.Manager
	signer  signerclient.Client
	ledger  *ledger.Ledger
}

func NewEngine(keysets *keyset.Manager, signer signerclient.Client, ldg *ledger.Ledger) *Engine {
	return &Engine{keysets: keysets, signer: signer, ledger: ldg}
}

// fee computes ceil(sum_inputs * ppk / 1000) against the maximum
// input_fee_ppk among the input keysets (spec §4.C "Fee policy").
func (e *Engine) fee(inputs []InputProof) (uint64, error) {
	var maxPpk int16
	var sumIn uint64
	for _, p := range inputs {
		ks, err := e.keysets.Lookup(p.KeysetID)
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

// Swap validates and executes an atomic proof exchange: consume(inputs),
// blind-sign outputs, record_issued(outputs), finalize(inputs, spent).
func (e *Engine) Swap(ctx context.Context, inputs []InputProof, outputs []Output) ([]Signature, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, &cashuerr.InvalidRequest
	}

	var unit string
	var sumIn uint64
	for _, p := range inputs {
		ks, err := e.keysets.Lookup(p.KeysetID)
		if err != nil {
			return nil, &cashuerr.UnknownKeyset
		}
		if unit == "" {
			unit = ks.Unit
		} else if ks.Unit != unit {
			return nil, &cashuerr.UnsupportedUnit
		}
		sumIn += p.Amount
	}

	if err := verifyInputs(ctx, e.signer, e.keysets, inputs); err != nil {
		return nil, err
	}

	var sumOut uint64
	for _, o := range outputs {
		ks, err := e.keysets.Lookup(o.KeysetID)
		if err != nil {
			return nil, &cashuerr.UnknownKeyset
		}
		if !ks.Active || ks.Unit != unit {
			return nil, &cashuerr.InactiveKeyset
		}
		slot, ok := crypto.SlotForAmount(o.Amount)
		if !ok || slot >= ks.MaxOrder {
			return nil, &cashuerr.InvalidBlindedMessage
		}
		sumOut += o.Amount
	}

	feeAmount, err := e.fee(inputs)
	if err != nil {
		return nil, err
	}
	if sumIn < sumOut+feeAmount {
		return nil, &cashuerr.AmountMismatch
	}

	ref := ledger.PendingRef("swap:" + uuid.NewString())
	ledgerInputs := make([]ledger.Proof, len(inputs))
	for i, p := range inputs {
		ledgerInputs[i] = ledger.Proof{Amount: p.Amount, KeysetID: p.KeysetID, Secret: p.Secret, Y: p.Y, C: p.C}
	}

	if err := e.ledger.Consume(ctx, ledgerInputs, ref); err != nil {
		return nil, err
	}

	sigs := make([]Signature, len(outputs))
	toSave := make([]ledger.BlindSignature, len(outputs))
	for i, o := range outputs {
		ks, _ := e.keysets.Lookup(o.KeysetID)
		tag := keyset.UnitTag(unit)
		slot, _ := crypto.SlotForAmount(o.Amount)

		C_, err := e.signer.Sign(ctx, tag, ks.DerivationPathIdx, slot, o.B_)
		if err != nil {
			return nil, cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
		}
		dleq, err := e.signer.ProveDLEQ(ctx, tag, ks.DerivationPathIdx, slot, o.B_, C_)
		if err != nil {
			return nil, cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
		}

		sigs[i] = Signature{Amount: o.Amount, KeysetID: o.KeysetID, C: C_, DLEQProof: dleq}
		toSave[i] = ledger.BlindSignature{
			B_:       hex.EncodeToString(o.B_.SerializeCompressed()),
			Amount:   o.Amount,
			KeysetID: o.KeysetID,
			C:        hex.EncodeToString(C_.SerializeCompressed()),
		}
	}

	quoteID := string(ref)
	if err := e.ledger.SaveBlindSignatures(ctx, quoteID, toSave); err != nil {
		return nil, fmt.Errorf("swap: persisting issued signatures: %w", err)
	}
	for _, sig := range toSave {
		if err := e.ledger.RecordIssued(ctx, sig.KeysetID, sig.Amount); err != nil {
			return nil, fmt.Errorf("swap: recording issued supply: %w", err)
		}
	}

	if err := e.ledger.Finalize(ctx, ref, ledger.OutcomeSpent); err != nil {
		return nil, fmt.Errorf("swap: finalizing consumed inputs: %w", err)
	}

	return sigs, nil
}

package rpcapi

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/nut/nut03"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
	"github.com/paynet-xyz/paynet-mint/quote/swap"
)

// ledgerProofFields is the shape shared by swap.InputProof,
// meltquote.InputProof and ledger.Proof: this node's three call sites
// for a spent proof all need the same five fields.
type ledgerProofFields struct {
	Amount   uint64
	KeysetID keyset.ID
	Secret   string
	Y        string
	C        string
}

// decodeProof parses a wire proof, deriving Y from Secret via
// hash-to-curve when the client didn't send one. The amount must be a
// power of two within the referenced keyset's own max_order (spec
// §4.C); this mirrors the check each engine's verifyInputs repeats,
// catching a malformed amount before it reaches the ledger.
func decodeProof(p nut03.Proof, keysets *keyset.Manager) (ledgerProofFields, error) {
	id, err := keyset.IDFromHex(p.Id)
	if err != nil {
		return ledgerProofFields{}, cashuerr.Build("invalid keyset id in proof: "+err.Error(), cashuerr.InvalidRequestErrCode)
	}
	ks, err := keysets.Lookup(id)
	if err != nil {
		return ledgerProofFields{}, &cashuerr.UnknownKeyset
	}
	if slot, ok := crypto.SlotForAmount(p.Amount); !ok || slot >= ks.MaxOrder {
		return ledgerProofFields{}, &cashuerr.InvalidProof
	}

	y := p.Y
	if y == "" {
		point, err := crypto.HashToCurve([]byte(p.Secret))
		if err != nil {
			return ledgerProofFields{}, cashuerr.Build("hashing secret to curve: "+err.Error(), cashuerr.InvalidRequestErrCode)
		}
		y = hex.EncodeToString(point.SerializeCompressed())
	}

	return ledgerProofFields{
		Amount:   p.Amount,
		KeysetID: id,
		Secret:   p.Secret,
		Y:        y,
		C:        p.C,
	}, nil
}

func decodeProofs(ps nut03.Proofs, keysets *keyset.Manager) ([]ledgerProofFields, error) {
	out := make([]ledgerProofFields, len(ps))
	for i, p := range ps {
		f, err := decodeProof(p, keysets)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func toSwapInputs(fields []ledgerProofFields) []swap.InputProof {
	out := make([]swap.InputProof, len(fields))
	for i, f := range fields {
		out[i] = swap.InputProof{Amount: f.Amount, KeysetID: f.KeysetID, Secret: f.Secret, Y: f.Y, C: f.C}
	}
	return out
}

func toMeltInputs(fields []ledgerProofFields) []meltquote.InputProof {
	out := make([]meltquote.InputProof, len(fields))
	for i, f := range fields {
		out[i] = meltquote.InputProof{Amount: f.Amount, KeysetID: f.KeysetID, Secret: f.Secret, Y: f.Y, C: f.C}
	}
	return out
}

// decodeBlindedMessage parses a wire blinded message into its
// compressed-point form, rejecting an amount that isn't a power of two
// within the referenced keyset's own max_order (spec §4.C).
func decodeBlindedMessage(m nut03.BlindedMessage, keysets *keyset.Manager) (keyset.ID, *secp256k1.PublicKey, error) {
	id, err := keyset.IDFromHex(m.Id)
	if err != nil {
		return keyset.ID{}, nil, cashuerr.Build("invalid keyset id in output: "+err.Error(), cashuerr.InvalidRequestErrCode)
	}
	ks, err := keysets.Lookup(id)
	if err != nil {
		return keyset.ID{}, nil, &cashuerr.UnknownKeyset
	}
	if slot, ok := crypto.SlotForAmount(m.Amount); !ok || slot >= ks.MaxOrder {
		return keyset.ID{}, nil, &cashuerr.InvalidBlindedMessage
	}
	bBytes, err := hex.DecodeString(m.B_)
	if err != nil {
		return keyset.ID{}, nil, cashuerr.Build("invalid B_ in output: "+err.Error(), cashuerr.InvalidRequestErrCode)
	}
	B_, err := secp256k1.ParsePubKey(bBytes)
	if err != nil {
		return keyset.ID{}, nil, cashuerr.Build("invalid B_ point in output: "+err.Error(), cashuerr.InvalidRequestErrCode)
	}
	return id, B_, nil
}

func toMintOutputs(outputs nut03.BlindedMessages, keysets *keyset.Manager) ([]mintquote.BlindedMessage, error) {
	out := make([]mintquote.BlindedMessage, len(outputs))
	for i, o := range outputs {
		id, B_, err := decodeBlindedMessage(o, keysets)
		if err != nil {
			return nil, err
		}
		out[i] = mintquote.BlindedMessage{Amount: o.Amount, KeysetID: id, B_: B_}
	}
	return out, nil
}

func toSwapOutputs(outputs nut03.BlindedMessages, keysets *keyset.Manager) ([]swap.Output, error) {
	out := make([]swap.Output, len(outputs))
	for i, o := range outputs {
		id, B_, err := decodeBlindedMessage(o, keysets)
		if err != nil {
			return nil, err
		}
		out[i] = swap.Output{Amount: o.Amount, KeysetID: id, B_: B_}
	}
	return out, nil
}

func dleqToWire(d *crypto.DLEQProof) *nut03.DLEQ {
	if d == nil {
		return nil
	}
	eb := d.E.Bytes()
	sb := d.S.Bytes()
	return &nut03.DLEQ{E: hex.EncodeToString(eb[:]), S: hex.EncodeToString(sb[:])}
}

func mintSignaturesToWire(sigs []mintquote.Signature) nut03.BlindedSignatures {
	out := make(nut03.BlindedSignatures, len(sigs))
	for i, s := range sigs {
		out[i] = nut03.BlindedSignature{
			Amount: s.Amount,
			Id:     s.KeysetID.String(),
			C_:     hex.EncodeToString(s.C.SerializeCompressed()),
			DLEQ:   dleqToWire(s.DLEQProof),
		}
	}
	return out
}

func swapSignaturesToWire(sigs []swap.Signature) nut03.BlindedSignatures {
	out := make(nut03.BlindedSignatures, len(sigs))
	for i, s := range sigs {
		out[i] = nut03.BlindedSignature{
			Amount: s.Amount,
			Id:     s.KeysetID.String(),
			C_:     hex.EncodeToString(s.C.SerializeCompressed()),
			DLEQ:   dleqToWire(s.DLEQProof),
		}
	}
	return out
}

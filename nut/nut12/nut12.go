// Package nut12 verifies DLEQ proofs attached to proofs and blind
// signatures. Generalized from the teacher's cashu.Proof/crypto.WalletKeyset
// pairing to this module's own crypto and nut03 wire types.
package nut12

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/nut/nut03"
)

// VerifyProofsDLEQ verifies the DLEQ proof on every proof that carries
// one, against the per-amount public key pubkeys. A proof with no
// DLEQ attached is skipped, not rejected (spec §9 decision 3).
func VerifyProofsDLEQ(proofs nut03.Proofs, pubkeys crypto.PublicKeys) bool {
	for _, proof := range proofs {
		if proof.DLEQ == nil {
			continue
		}
		A, ok := pubkeys[proof.Amount]
		if !ok {
			return false
		}
		if !VerifyProofDLEQ(proof, A) {
			return false
		}
	}
	return true
}

func VerifyProofDLEQ(proof nut03.Proof, A *secp256k1.PublicKey) bool {
	e, s, r, err := parseProofDLEQ(proof.DLEQ)
	if err != nil || r == nil {
		return false
	}

	B_, _, err := crypto.BlindMessage([]byte(proof.Secret), r.Serialize())
	if err != nil {
		return false
	}

	CBytes, err := hex.DecodeString(proof.C)
	if err != nil {
		return false
	}
	C, err := secp256k1.ParsePubKey(CBytes)
	if err != nil {
		return false
	}

	// C_ = C + r*A: the DLEQ was produced over the blinded signature.
	var cPoint, aPoint, rA, cBlind secp256k1.JacobianPoint
	C.AsJacobian(&cPoint)
	A.AsJacobian(&aPoint)
	secp256k1.ScalarMultNonConst(&r.Key, &aPoint, &rA)
	secp256k1.AddNonConst(&cPoint, &rA, &cBlind)
	cBlind.ToAffine()
	C_ := secp256k1.NewPublicKey(&cBlind.X, &cBlind.Y)

	return crypto.VerifyDLEQ(&crypto.DLEQProof{E: &e, S: &s}, A, B_, C_)
}

// VerifyBlindSignatureDLEQ verifies the DLEQ the signer attaches to a
// blind signature, before unblinding: it proves C_ = k*B_ using the
// same k as A = k*G, without the verifier knowing secret or r.
func VerifyBlindSignatureDLEQ(dleq *nut03.DLEQ, A *secp256k1.PublicKey, B_Hex, C_Hex string) bool {
	e, s, _, err := parseProofDLEQ(dleq)
	if err != nil {
		return false
	}

	B_bytes, err := hex.DecodeString(B_Hex)
	if err != nil {
		return false
	}
	B_, err := secp256k1.ParsePubKey(B_bytes)
	if err != nil {
		return false
	}

	C_bytes, err := hex.DecodeString(C_Hex)
	if err != nil {
		return false
	}
	C_, err := secp256k1.ParsePubKey(C_bytes)
	if err != nil {
		return false
	}

	return crypto.VerifyDLEQ(&crypto.DLEQProof{E: &e, S: &s}, A, B_, C_)
}

// parseProofDLEQ decodes e, s and, if present, the blinding factor r.
func parseProofDLEQ(dleq *nut03.DLEQ) (secp256k1.ModNScalar, secp256k1.ModNScalar, *secp256k1.PrivateKey, error) {
	var e, s secp256k1.ModNScalar

	if dleq == nil {
		return e, s, nil, hex.ErrLength
	}

	eBytes, err := hex.DecodeString(dleq.E)
	if err != nil {
		return e, s, nil, err
	}
	e.SetByteSlice(eBytes)

	sBytes, err := hex.DecodeString(dleq.S)
	if err != nil {
		return e, s, nil, err
	}
	s.SetByteSlice(sBytes)

	if dleq.R == "" {
		return e, s, nil, nil
	}

	rBytes, err := hex.DecodeString(dleq.R)
	if err != nil {
		return e, s, nil, err
	}
	r := secp256k1.PrivKeyFromBytes(rBytes)

	return e, s, r, nil
}

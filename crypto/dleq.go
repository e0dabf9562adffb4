package crypto

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DLEQProof is a non-interactive Chaum-Pedersen proof that the signer
// used the same private key k to produce C' = k*B' as it did to
// publish K = k*G.
type DLEQProof struct {
	E *secp256k1.ModNScalar
	S *secp256k1.ModNScalar
}

// GenerateDLEQ proves, without revealing k, that C_ = k*B_ using the
// same k as K = k*G. Called by the signer alongside SignBlindedMessage.
func GenerateDLEQ(k *secp256k1.PrivateKey, K, B_, C_ *secp256k1.PublicKey) (*DLEQProof, error) {
	p, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	R1 := pointFromScalarMultG(&p.Key)
	R2 := pointFromScalarMult(&p.Key, B_)

	e := dleqChallenge(R1, R2, K, B_, C_)

	var s secp256k1.ModNScalar
	s.Mul2(&e, &k.Key).Add(&p.Key)

	return &DLEQProof{E: &e, S: &s}, nil
}

// VerifyDLEQ checks a proof produced by GenerateDLEQ against the
// published key K and the blinded message/signature pair (B_, C_).
func VerifyDLEQ(proof *DLEQProof, K, B_, C_ *secp256k1.PublicKey) bool {
	if proof == nil {
		return false
	}

	// R1 = s*G - e*K
	sG := pointFromScalarMultG(proof.S)
	eK := pointFromScalarMult(proof.E, K)
	R1 := pointSub(sG, eK)

	// R2 = s*B_ - e*C_
	sB := pointFromScalarMult(proof.S, B_)
	eC := pointFromScalarMult(proof.E, C_)
	R2 := pointSub(sB, eC)

	e := dleqChallenge(R1, R2, K, B_, C_)
	return e.Equals(proof.E)
}

func dleqChallenge(R1, R2, K, B_, C_ *secp256k1.PublicKey) secp256k1.ModNScalar {
	h := sha256.New()
	for _, p := range []*secp256k1.PublicKey{R1, R2, K, B_, C_} {
		h.Write(p.SerializeCompressed())
	}
	digest := h.Sum(nil)

	var e secp256k1.ModNScalar
	e.SetByteSlice(digest)
	return e
}

func pointFromScalarMultG(scalar *secp256k1.ModNScalar) *secp256k1.PublicKey {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(scalar, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func pointFromScalarMult(scalar *secp256k1.ModNScalar, point *secp256k1.PublicKey) *secp256k1.PublicKey {
	var p, result secp256k1.JacobianPoint
	point.AsJacobian(&p)
	secp256k1.ScalarMultNonConst(scalar, &p, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

func pointSub(a, b *secp256k1.PublicKey) *secp256k1.PublicKey {
	var aPoint, bPoint, negB, sum secp256k1.JacobianPoint
	a.AsJacobian(&aPoint)
	b.AsJacobian(&bPoint)

	negB = bPoint
	negB.Y.Negate(1)
	negB.Y.Normalize()

	secp256k1.AddNonConst(&aPoint, &negB, &sum)
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}

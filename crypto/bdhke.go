// Package crypto implements the blind Diffie-Hellman key exchange
// scheme the mint uses to issue and verify unlinkable signatures over
// secp256k1, plus the DLEQ proof the signer attaches so a wallet can
// check that a signature really came from the advertised key.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// domainSeparator tags hash_to_curve inputs so they can never collide
// with a hash used for another purpose in this protocol.
var domainSeparator = []byte("Secp256k1_HashToCurve_Paynet_")

// HashToCurve deterministically maps secret to a point on the curve
// with no known discrete log, via domain-separated try-and-increment.
func HashToCurve(secret []byte) (*secp256k1.PublicKey, error) {
	msg := append(append([]byte{}, domainSeparator...), secret...)
	base := sha256.Sum256(msg)

	for counter := uint32(0); ; counter++ {
		var counterBytes [4]byte
		binary.LittleEndian.PutUint32(counterBytes[:], counter)

		h := sha256.New()
		h.Write(base[:])
		h.Write(counterBytes[:])
		hash := h.Sum(nil)

		candidate := append([]byte{0x02}, hash...)
		point, err := secp256k1.ParsePubKey(candidate)
		if err == nil && point.IsOnCurve() {
			return point, nil
		}

		if counter == ^uint32(0) {
			return nil, errors.New("crypto: hash_to_curve did not converge")
		}
	}
}

// BlindMessage returns B' = Y + r*G for the given secret and blinding
// factor r. Only B' is sent to the signer; r stays with the caller.
func BlindMessage(secret []byte, blindingFactor []byte) (*secp256k1.PublicKey, *secp256k1.PrivateKey, error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return nil, nil, err
	}

	var yPoint, rPoint, blinded secp256k1.JacobianPoint
	Y.AsJacobian(&yPoint)

	r, rPub := btcec.PrivKeyFromBytes(blindingFactor)
	rPub.AsJacobian(&rPoint)

	secp256k1.AddNonConst(&yPoint, &rPoint, &blinded)
	blinded.ToAffine()
	B_ := secp256k1.NewPublicKey(&blinded.X, &blinded.Y)

	return B_, r, nil
}

// SignBlindedMessage computes C' = k*B' for the per-denomination
// private key k. This is the one operation the signer performs; the
// node never holds k.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var bPoint, result secp256k1.JacobianPoint
	B_.AsJacobian(&bPoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bPoint, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// UnblindSignature computes C = C' - r*K, turning the blinded
// signature into one the holder of secret can present unlinkably.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) *secp256k1.PublicKey {
	var kPoint, rkPoint, cPoint, c_Point secp256k1.JacobianPoint
	K.AsJacobian(&kPoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)
	secp256k1.ScalarMultNonConst(&rNeg, &kPoint, &rkPoint)

	C_.AsJacobian(&c_Point)
	secp256k1.AddNonConst(&c_Point, &rkPoint, &cPoint)
	cPoint.ToAffine()

	return secp256k1.NewPublicKey(&cPoint.X, &cPoint.Y)
}

// Verify reports whether k*hash_to_curve(secret) == C, i.e. whether C
// is a valid signature on secret under the private key k.
func Verify(secret []byte, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) (bool, error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return false, err
	}

	var yPoint, result secp256k1.JacobianPoint
	Y.AsJacobian(&yPoint)
	secp256k1.ScalarMultNonConst(&k.Key, &yPoint, &result)
	result.ToAffine()
	pk := secp256k1.NewPublicKey(&result.X, &result.Y)

	return C.IsEqual(pk), nil
}

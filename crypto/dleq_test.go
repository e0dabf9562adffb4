package crypto

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func TestDLEQRoundTrip(t *testing.T) {
	kBytes := make([]byte, 32)
	kBytes[31] = 0x0b
	k, _ := btcec.PrivKeyFromBytes(kBytes)
	K := k.PubKey()

	secret := []byte("dleq-secret")
	blindingFactor := make([]byte, 32)
	blindingFactor[31] = 0x0c

	B_, _, err := BlindMessage(secret, blindingFactor)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}
	C_ := SignBlindedMessage(B_, k)

	proof, err := GenerateDLEQ(k, K, B_, C_)
	if err != nil {
		t.Fatalf("GenerateDLEQ: %v", err)
	}

	if !VerifyDLEQ(proof, K, B_, C_) {
		t.Error("DLEQ proof failed to verify against its own transcript")
	}
}

func TestDLEQRejectsWrongKey(t *testing.T) {
	kBytes := make([]byte, 32)
	kBytes[31] = 0x0d
	k, _ := btcec.PrivKeyFromBytes(kBytes)
	K := k.PubKey()

	otherBytes := make([]byte, 32)
	otherBytes[31] = 0x0e
	otherK, _ := btcec.PrivKeyFromBytes(otherBytes)

	secret := []byte("dleq-secret-2")
	blindingFactor := make([]byte, 32)
	blindingFactor[31] = 0x0f

	B_, _, err := BlindMessage(secret, blindingFactor)
	if err != nil {
		t.Fatalf("BlindMessage: %v", err)
	}
	C_ := SignBlindedMessage(B_, k)

	proof, err := GenerateDLEQ(k, K, B_, C_)
	if err != nil {
		t.Fatalf("GenerateDLEQ: %v", err)
	}

	if VerifyDLEQ(proof, otherK.PubKey(), B_, C_) {
		t.Error("DLEQ proof verified against the wrong public key")
	}
}

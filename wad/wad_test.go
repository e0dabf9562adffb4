package wad_test

import (
	"testing"

	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/wad"
)

func sampleWad(t *testing.T) wad.Wad {
	t.Helper()
	id, err := keyset.IDFromHex("0102030405060708")
	if err != nil {
		t.Fatalf("IDFromHex: %v", err)
	}
	return wad.Wad{
		NodeURL: "https://mint.example",
		Unit:    "sat",
		Proofs: []wad.Proof{
			{Amount: 4, ID: id[:], Secret: "s1", C: make([]byte, 33)},
			{Amount: 8, ID: id[:], Secret: "s2", C: make([]byte, 33)},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	w := sampleWad(t)

	encoded, err := wad.Encode(w)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := wad.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.NodeURL != w.NodeURL || decoded.Unit != w.Unit {
		t.Fatalf("round trip changed node/unit: got %+v", decoded)
	}
	if len(decoded.Proofs) != len(w.Proofs) {
		t.Fatalf("round trip changed proof count: got %d, want %d", len(decoded.Proofs), len(w.Proofs))
	}
	for i, p := range decoded.Proofs {
		if p.Amount != w.Proofs[i].Amount || p.Secret != w.Proofs[i].Secret {
			t.Fatalf("proof %d changed in round trip: got %+v", i, p)
		}
	}
}

func TestEncodeDecodeEncodeIsByteIdentical(t *testing.T) {
	w := sampleWad(t)

	first, err := wad.Encode(w)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := wad.Decode(first)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := wad.Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if first != second {
		t.Fatalf("serialize->deserialize->serialize is not byte-identical:\n%s\n%s", first, second)
	}
}

func TestEncodeRejectsEmptyProofs(t *testing.T) {
	_, err := wad.Encode(wad.Wad{NodeURL: "https://mint.example", Unit: "sat"})
	if err != wad.ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestDecodeRejectsMissingPrefix(t *testing.T) {
	_, err := wad.Decode("notawad")
	if err != wad.ErrInvalidPrefix {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}
}

func TestDecodeRejectsGarbageBody(t *testing.T) {
	_, err := wad.Decode("paynet!!!not-base64!!!")
	if err == nil {
		t.Fatal("expected decode to fail on invalid body")
	}
}

func TestProofKeysetIDAndCHex(t *testing.T) {
	id, err := keyset.IDFromHex("0102030405060708")
	if err != nil {
		t.Fatalf("IDFromHex: %v", err)
	}
	p := wad.Proof{ID: id[:], C: []byte{0x02, 0xaa, 0xbb}}

	got, err := p.KeysetID()
	if err != nil {
		t.Fatalf("KeysetID: %v", err)
	}
	if got != id {
		t.Fatalf("KeysetID mismatch: got %v, want %v", got, id)
	}

	if p.CHex() != "02aabb" {
		t.Fatalf("CHex mismatch: got %s", p.CHex())
	}
}

func TestProofKeysetIDRejectsWrongLength(t *testing.T) {
	p := wad.Proof{ID: []byte{1, 2, 3}}
	if _, err := p.KeysetID(); err == nil {
		t.Fatal("expected error for short id")
	}
}

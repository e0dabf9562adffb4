package node

import (
	"context"
	"testing"

	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/config"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

func TestUnitRoutedSignerResolvesByTag(t *testing.T) {
	signer := signerclient.NewFake(nil)
	tag := keyset.UnitTag("sat")
	n := &Node{
		tagToUnit: map[uint32]string{tag: "sat"},
		signers:   map[string]signerclient.Client{"sat": signer},
	}

	routed := unitRoutedSigner{n}
	keys, err := routed.GenerateKeys(context.Background(), tag, 0, 4)
	if err != nil {
		t.Fatalf("GenerateKeys: %v", err)
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 keys for maxOrder 4, got %d", len(keys))
	}
}

func TestUnitRoutedSignerRejectsUnknownTag(t *testing.T) {
	n := &Node{
		tagToUnit: map[uint32]string{},
		signers:   map[string]signerclient.Client{},
	}
	routed := unitRoutedSigner{n}
	if _, err := routed.GenerateKeys(context.Background(), 9999, 0, 4); err == nil {
		t.Fatal("expected unknown unit tag to be rejected")
	}
}

func TestCashierForResolvesByUnit(t *testing.T) {
	cashier := cashierclient.NewFake()
	n := &Node{cashiers: map[string]cashierclient.Client{"sat": cashier}}

	c, err := n.cashierFor("sat")
	if err != nil {
		t.Fatalf("cashierFor: %v", err)
	}
	if c != cashier {
		t.Fatal("expected cashierFor to return the configured client")
	}

	if _, err := n.cashierFor("eur"); err == nil {
		t.Fatal("expected cashierFor to reject an unconfigured unit")
	}
}

func TestDepositAddressForResolvesFromConfig(t *testing.T) {
	n := &Node{
		Config: config.Config{
			Units: map[string]config.UnitBackend{
				"sat": {DepositAddress: "addr-sat"},
			},
		},
	}

	addr, err := n.depositAddressFor("sat")
	if err != nil {
		t.Fatalf("depositAddressFor: %v", err)
	}
	if addr != "addr-sat" {
		t.Fatalf("expected addr-sat, got %q", addr)
	}

	if _, err := n.depositAddressFor("eur"); err == nil {
		t.Fatal("expected depositAddressFor to reject an unconfigured unit")
	}
}

func TestEstimateFeeIsZeroPlaceholder(t *testing.T) {
	n := &Node{}
	fee, err := n.estimateFee("sat", "dest", 100)
	if err != nil {
		t.Fatalf("estimateFee: %v", err)
	}
	if fee != 0 {
		t.Fatalf("expected placeholder fee of 0, got %d", fee)
	}
}

package node

import (
	"context"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

// unitRoutedSigner implements signerclient.Client by resolving the
// per-unit signer client from a unitTag, since keyset.Manager and the
// quote engines only carry the tag, not the unit string. Each unit
// may have a different signer RPC endpoint (spec §9 "Polymorphism").
type unitRoutedSigner struct{ n *Node }

func (r unitRoutedSigner) resolve(unitTag uint32) (signerclient.Client, error) {
	unit, ok := r.n.tagToUnit[unitTag]
	if !ok {
		return nil, fmt.Errorf("node: no unit registered for tag %d", unitTag)
	}
	client, ok := r.n.signers[unit]
	if !ok {
		return nil, fmt.Errorf("node: no signer configured for unit %s", unit)
	}
	return client, nil
}

func (r unitRoutedSigner) GenerateKeys(ctx context.Context, unitTag, index uint32, maxOrder int) ([]*secp256k1.PublicKey, error) {
	c, err := r.resolve(unitTag)
	if err != nil {
		return nil, err
	}
	return c.GenerateKeys(ctx, unitTag, index, maxOrder)
}

func (r unitRoutedSigner) Sign(ctx context.Context, unitTag, index uint32, slot int, B_ *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	c, err := r.resolve(unitTag)
	if err != nil {
		return nil, err
	}
	return c.Sign(ctx, unitTag, index, slot, B_)
}

func (r unitRoutedSigner) Verify(ctx context.Context, unitTag, index uint32, slot int, secret []byte, C *secp256k1.PublicKey) (bool, error) {
	c, err := r.resolve(unitTag)
	if err != nil {
		return false, err
	}
	return c.Verify(ctx, unitTag, index, slot, secret, C)
}

func (r unitRoutedSigner) ProveDLEQ(ctx context.Context, unitTag, index uint32, slot int, B_, C_ *secp256k1.PublicKey) (*crypto.DLEQProof, error) {
	c, err := r.resolve(unitTag)
	if err != nil {
		return nil, err
	}
	return c.ProveDLEQ(ctx, unitTag, index, slot, B_, C_)
}

// cashierFor resolves the cashier dialed for unit, passed to
// meltquote.NewEngine as a meltquote.CashierFor.
func (n *Node) cashierFor(unit string) (cashierclient.Client, error) {
	c, ok := n.cashiers[unit]
	if !ok {
		return nil, fmt.Errorf("node: no cashier configured for unit %s", unit)
	}
	return c, nil
}

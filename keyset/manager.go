package keyset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/crypto"
	"github.com/paynet-xyz/paynet-mint/signerclient"
)

// Store is the persistence boundary for keysets, generalizing the
// teacher's storage.MintDB keyset methods into their own interface so
// ledger and correlator stores don't need to know about key material.
type Store interface {
	// RotateKeyset atomically persists a freshly derived active keyset
	// and, if hasPrev is true, demotes prevID's keyset in the same
	// transaction — a crash between the two writes must never leave
	// two active keysets for one unit (spec §4.B).
	RotateKeyset(ctx context.Context, newKeyset Keyset, prevID ID, hasPrev bool) error
	GetKeysets() ([]Keyset, error)
}

// Manager derives, caches and rotates keysets for every unit this
// node serves. It never touches private key material directly: all
// derivation goes through signerclient.
type Manager struct {
	mu     sync.RWMutex
	signer signerclient.Client
	store  Store
	logger *slog.Logger

	byID     map[ID]Keyset
	activeOf map[string]ID // unit -> active keyset id
	nextIdx  map[string]uint32
}

func NewManager(signer signerclient.Client, store Store, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		signer:   signer,
		store:    store,
		logger:   logger,
		byID:     make(map[ID]Keyset),
		activeOf: make(map[string]ID),
		nextIdx:  make(map[string]uint32),
	}

	existing, err := store.GetKeysets()
	if err != nil {
		return nil, fmt.Errorf("keyset: loading keysets from store: %w", err)
	}
	for _, ks := range existing {
		m.byID[ks.ID] = ks
		if ks.Active {
			m.activeOf[ks.Unit] = ks.ID
		}
		if ks.DerivationPathIdx >= m.nextIdx[ks.Unit] {
			m.nextIdx[ks.Unit] = ks.DerivationPathIdx + 1
		}
	}

	return m, nil
}

// EnsureActive returns the active keyset for unit, deriving and
// persisting a brand new one via the signer if this unit has never
// been seen before. Mirrors LoadMint's "set active keyset, persist if
// new" sequence, but scoped per-unit instead of once at startup.
func (m *Manager) EnsureActive(ctx context.Context, unit string, maxOrder int, feePpk int16) (Keyset, error) {
	m.mu.RLock()
	if id, ok := m.activeOf[unit]; ok {
		ks := m.byID[id]
		m.mu.RUnlock()
		return ks, nil
	}
	m.mu.RUnlock()

	return m.Rotate(ctx, unit, maxOrder, feePpk)
}

// Rotate derives a fresh keyset for unit, marks it active and demotes
// whatever keyset was previously active for that unit, atomically
// with respect to other Manager callers. Mirrors LoadMint's loop that
// demotes every non-active-match keyset to inactive, generalized to
// run on demand instead of once at startup.
func (m *Manager) Rotate(ctx context.Context, unit string, maxOrder int, feePpk int16) (Keyset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.nextIdx[unit]
	tag := UnitTag(unit)

	pubkeys, err := m.signer.GenerateKeys(ctx, tag, idx, maxOrder)
	if err != nil {
		return Keyset{}, cashuerr.Build(fmt.Sprintf("signer unavailable: %v", err), cashuerr.SignerUnavailableCode)
	}

	pks := make(crypto.PublicKeys, len(pubkeys))
	for i, pk := range pubkeys {
		pks[crypto.AmountForSlot(i)] = pk
	}

	id := DeriveID(pks, unit)
	if _, exists := m.byID[id]; exists {
		return Keyset{}, cashuerr.Build("derived keyset id collides with an existing keyset", cashuerr.KeysetDerivationFailedErrCode)
	}

	newKeyset := Keyset{
		ID:                id,
		Unit:              unit,
		Active:            true,
		MaxOrder:          maxOrder,
		DerivationPathIdx: idx,
		InputFeePpk:       feePpk,
		PublicKeys:        pks,
	}

	prevID, hasPrev := m.activeOf[unit]
	if err := m.store.RotateKeyset(ctx, newKeyset, prevID, hasPrev); err != nil {
		return Keyset{}, fmt.Errorf("keyset: rotating keyset: %w", err)
	}

	if hasPrev {
		prev := m.byID[prevID]
		prev.Active = false
		m.byID[prevID] = prev
		if m.logger != nil {
			m.logger.Info("rotating keyset", "unit", unit, "retired", prevID.String(), "new", id.String())
		}
	}

	m.byID[id] = newKeyset
	m.activeOf[unit] = id
	m.nextIdx[unit] = idx + 1

	return newKeyset, nil
}

// Lookup returns the keyset with the given id, whether active or
// retired, or UnknownKeyset if this node has never derived it.
func (m *Manager) Lookup(id ID) (Keyset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ks, ok := m.byID[id]
	if !ok {
		return Keyset{}, &cashuerr.UnknownKeyset
	}
	return ks, nil
}

// Active returns the currently active keyset for unit.
func (m *Manager) Active(unit string) (Keyset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.activeOf[unit]
	if !ok {
		return Keyset{}, &cashuerr.UnsupportedUnit
	}
	return m.byID[id], nil
}

// All returns every keyset this node knows, active and retired.
func (m *Manager) All() []Keyset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Keyset, 0, len(m.byID))
	for _, ks := range m.byID {
		out = append(out, ks)
	}
	return out
}

// PublicKeyForSlot fetches the public key of keyset id at the given
// power-of-two slot, used by rpcapi's Keys handler and by verification.
func (m *Manager) PublicKeyForSlot(id ID, amount uint64) (*secp256k1.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ks, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	pk, ok := ks.PublicKeys[amount]
	return pk, ok
}

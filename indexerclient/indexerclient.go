// Package indexerclient defines the narrow contract the node's event
// correlator uses to observe on-chain deposit and withdrawal events
// from an external indexer. The stream is cursor-based and resumable:
// the node persists the last cursor it has processed and passes it
// back on reconnect so restarts never replay the whole chain history.
package indexerclient

import "context"

// EventKind distinguishes deposits (fund mint quotes) from withdrawal
// confirmations (settle melt quotes).
type EventKind int

const (
	EventDeposit EventKind = iota
	EventWithdrawalConfirmed

	// EventReorg signals that BlockID has been invalidated by a chain
	// reorganization: every event this node previously processed from
	// that block must be reverted (spec §4.E revert(block_id)).
	// Amount, Unit, Payee and Address are unused for this kind.
	EventReorg
)

// Event is one on-chain occurrence the correlator must react to.
// (TxHash, Index) is the idempotency key the correlator dedups on.
type Event struct {
	Kind   EventKind
	Cursor string
	TxHash string
	Index  uint32

	// BlockID is the chain block this event was confirmed in. The
	// correlator records it against the event so a later reorg signal
	// naming the same BlockID can find and revert everything that
	// block confirmed.
	BlockID string

	// Payee is the on-chain destination address this event actually
	// paid: the funding output's address for a deposit, the
	// withdrawal's payout address for a confirmation. The correlator
	// rejects any event whose Payee doesn't match the node's
	// configured address for that unit before it ever reaches the
	// mint/melt engines (spec §4.E step (a)).
	Payee string

	// Address carries the invoice/quote correlation key the indexer
	// embeds in the event (e.g. a deposit memo or tag) — an opaque
	// lookup key, not a payee to verify against.
	Address       string
	Amount        uint64
	Unit          string
	Confirmations uint32
}

// Client is the capability set the correlator depends on.
type Client interface {
	// Observe streams events starting strictly after afterCursor (empty
	// string means "from genesis"). It blocks until ctx is canceled or
	// the underlying stream breaks, in which case it returns an error
	// the caller should treat as retriable: reconnect with the last
	// cursor observed.
	Observe(ctx context.Context, afterCursor string, onEvent func(Event) error) error
}

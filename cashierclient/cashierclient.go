// Package cashierclient defines the narrow contract the node uses to
// reach the cashier: the component that actually moves value on the
// settlement rail when a melt quote pays out. Modeled on
// lightning.Client's role in the teacher, split out from
// indexerclient because a node may watch deposits on one rail while
// paying out on another.
package cashierclient

import "context"

// WithdrawalStatus mirrors the cashier-side lifecycle of a payout the
// node asked for via SubmitWithdrawal.
type WithdrawalStatus int

const (
	WithdrawalUnknown WithdrawalStatus = iota
	WithdrawalPending
	WithdrawalSettled
	WithdrawalFailed
)

// Client is the capability set the melt quote engine depends on.
type Client interface {
	// SubmitWithdrawal asks the cashier to pay destination the given
	// amount (in the quote's unit) on behalf of a melt quote. id is
	// the node's own quote id, passed through for idempotency on the
	// cashier side: resubmitting the same id must not double-pay.
	SubmitWithdrawal(ctx context.Context, id string, destination string, amount uint64) error

	// GetWithdrawalStatus reports the current status of a previously
	// submitted withdrawal, and the rail-native reference (e.g. a
	// payment preimage or tx hash) once settled.
	GetWithdrawalStatus(ctx context.Context, id string) (WithdrawalStatus, string, error)
}

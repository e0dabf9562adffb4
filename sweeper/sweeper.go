// Package sweeper reclaims proofs left PENDING by a client that
// disconnected between ledger.Hold and ledger.Finalize. Grounded on
// mint/invoicesub.go's single background goroutine in the teacher,
// generalized from a one-shot per-invoice subscription into a
// recurring ticker (spec §5 "Cancellation").
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/paynet-xyz/paynet-mint/ledger"
)

// SwapPendingMax is how long a swap's PENDING hold may survive before
// the sweeper reclaims it — short, since a swap has no external
// party to wait on.
const SwapPendingMax = 10 * time.Second

// Sweeper only reclaims proofs held under the "swap:" ref prefix.
// Melt-held proofs are never swept here: their cashier submission may
// already have been accepted, and only the correlator (on withdrawal
// confirmation, or an operator decision on quote expiry) may resolve
// them, per spec §5.
type Sweeper struct {
	ledger   *ledger.Ledger
	interval time.Duration
	logger   *slog.Logger
}

func New(ldg *ledger.Ledger, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{ledger: ldg, interval: interval, logger: logger}
}

// Run ticks until ctx is canceled, sweeping stale swap holds each
// interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.ledger.ReleaseStalePending(ctx, "swap:", time.Now().Add(-SwapPendingMax))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("sweeper: releasing stale pending proofs", "err", err)
		}
		return
	}
	if n > 0 && s.logger != nil {
		s.logger.Info("sweeper: released stale pending proofs", "count", n)
	}
}

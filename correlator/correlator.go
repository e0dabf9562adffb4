// Package correlator consumes the indexer's resumable event stream
// and drives mint/melt quote state transitions from confirmed
// on-chain deposits and withdrawals. Grounded on mint/invoicesub.go's
// subscribe-and-update-on-settlement goroutine in the teacher,
// generalized from a single invoice subscription into a persistent,
// cursor-resuming stream consumer.
package correlator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/indexerclient"
	"github.com/paynet-xyz/paynet-mint/pubsub"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
)

// RecordedEvent is one previously-processed event as the correlator
// needs it back to revert a reorged block: enough to know which
// engine to call and with which correlation key, without re-decoding
// the original indexer event.
type RecordedEvent struct {
	Kind           indexerclient.EventKind
	CorrelationKey string
}

// CursorStore persists the last-processed cursor so a restart resumes
// instead of replaying the whole chain history, and dedups events by
// (tx_hash, event_index).
type CursorStore interface {
	GetCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name string, cursor string) error

	// RecordEvent inserts (txHash, eventIndex) if absent and reports
	// whether it was newly inserted; a false return means this event
	// was already processed and must be skipped (spec §4.E idempotency,
	// property 6 in §8). blockID/kind/correlationKey are stored
	// alongside so a later reorg of blockID can find and revert it.
	RecordEvent(ctx context.Context, txHash string, eventIndex uint32, blockID string, kind indexerclient.EventKind, correlationKey string) (bool, error)

	// EventsForBlock returns every event previously recorded against
	// blockID, for Revert to un-confirm.
	EventsForBlock(ctx context.Context, blockID string) ([]RecordedEvent, error)

	// DeleteEventsForBlock forgets every event recorded against
	// blockID, so if the same (tx_hash, event_index) reappears on the
	// canonical chain it is processed again rather than skipped as a
	// replay.
	DeleteEventsForBlock(ctx context.Context, blockID string) error
}

const cursorName = "default"

// Correlator drives the mint/melt engines from the indexer stream.
type Correlator struct {
	indexer   indexerclient.Client
	cursors   CursorStore
	mintQ     *mintquote.Engine
	meltQ     *meltquote.Engine
	publisher *pubsub.PubSub
	logger    *slog.Logger

	// address is this node's configured deposit/payout address for
	// the unit this Correlator serves. Events whose Payee doesn't
	// match it belong to someone else's traffic on the same chain and
	// must never reach the mint/melt engines (spec §4.E step (a)).
	address string
}

func New(indexer indexerclient.Client, cursors CursorStore, mintQ *mintquote.Engine, meltQ *meltquote.Engine, publisher *pubsub.PubSub, logger *slog.Logger, address string) *Correlator {
	return &Correlator{indexer: indexer, cursors: cursors, mintQ: mintQ, meltQ: meltQ, publisher: publisher, logger: logger, address: address}
}

// Run blocks, consuming the indexer stream from the last persisted
// cursor until ctx is canceled. Callers should run it in its own
// goroutine and reconnect (with backoff) if it returns a retriable
// error.
func (c *Correlator) Run(ctx context.Context) error {
	cursor, err := c.cursors.GetCursor(ctx, cursorName)
	if err != nil {
		cursor = ""
	}

	return c.indexer.Observe(ctx, cursor, func(ev indexerclient.Event) error {
		return c.handle(ctx, ev)
	})
}

func (c *Correlator) handle(ctx context.Context, ev indexerclient.Event) error {
	if ev.Kind == indexerclient.EventReorg {
		if err := c.Revert(ctx, ev.BlockID); err != nil {
			if c.logger != nil {
				c.logger.Error("correlator: reverting reorged block", "block", ev.BlockID, "err", err)
			}
			return err
		}
		return c.cursors.SaveCursor(ctx, cursorName, ev.Cursor)
	}

	correlationKey := invoiceIDFromAddress(ev)
	if ev.Kind == indexerclient.EventWithdrawalConfirmed {
		correlationKey = withdrawalQuoteID(ev)
	}

	fresh, err := c.cursors.RecordEvent(ctx, ev.TxHash, ev.Index, ev.BlockID, ev.Kind, correlationKey)
	if err != nil {
		return cashuerr.Build("db contention recording event", cashuerr.DBContentionCode)
	}
	if !fresh {
		// replay of an already-processed event: no-op (spec §4.E, §8 property 6)
		return c.cursors.SaveCursor(ctx, cursorName, ev.Cursor)
	}

	if c.address != "" && ev.Payee != c.address {
		// not addressed to this node: advance the cursor but never
		// route it into a quote engine (spec §4.E step (a))
		if c.logger != nil {
			c.logger.Warn("correlator: ignoring event for foreign payee", "tx", ev.TxHash, "payee", ev.Payee)
		}
		return c.cursors.SaveCursor(ctx, cursorName, ev.Cursor)
	}

	switch ev.Kind {
	case indexerclient.EventDeposit:
		if err := c.mintQ.ObserveDeposit(ctx, correlationKey, ev.Amount, time.Now()); err != nil {
			if c.logger != nil {
				c.logger.Error("correlator: observing deposit", "tx", ev.TxHash, "err", err)
			}
		} else if c.publisher != nil {
			payload, _ := json.Marshal(ev)
			c.publisher.Publish(pubsub.TopicMintQuoteStateChanged, payload)
		}
	case indexerclient.EventWithdrawalConfirmed:
		if err := c.meltQ.ConfirmWithdrawal(ctx, correlationKey, ev.TxHash); err != nil {
			if c.logger != nil {
				c.logger.Error("correlator: confirming withdrawal", "tx", ev.TxHash, "err", err)
			}
		} else if c.publisher != nil {
			payload, _ := json.Marshal(ev)
			c.publisher.Publish(pubsub.TopicMeltQuoteStateChanged, payload)
		}
	}

	return c.cursors.SaveCursor(ctx, cursorName, ev.Cursor)
}

// Revert un-confirms every event this correlator previously recorded
// against blockID: deposits go back to UNPAID, withdrawal
// confirmations go back to PENDING with their held proofs unspent.
// Wired from an EventReorg signal in the indexer stream (spec §4.E
// revert(block_id)).
func (c *Correlator) Revert(ctx context.Context, blockID string) error {
	events, err := c.cursors.EventsForBlock(ctx, blockID)
	if err != nil {
		return fmt.Errorf("correlator: loading events for reorged block %s: %w", blockID, err)
	}

	for _, ev := range events {
		switch ev.Kind {
		case indexerclient.EventDeposit:
			if err := c.mintQ.Revert(ctx, ev.CorrelationKey); err != nil && c.logger != nil {
				c.logger.Error("correlator: reverting mint quote", "quote", ev.CorrelationKey, "block", blockID, "err", err)
			}
		case indexerclient.EventWithdrawalConfirmed:
			if err := c.meltQ.Revert(ctx, ev.CorrelationKey); err != nil && c.logger != nil {
				c.logger.Error("correlator: reverting melt quote", "quote", ev.CorrelationKey, "block", blockID, "err", err)
			}
		}
	}

	return c.cursors.DeleteEventsForBlock(ctx, blockID)
}

// invoiceIDFromAddress extracts the invoice_id the mint quote was
// created with. The indexer embeds it in the event's Address field
// (the deposit memo/tag); this node treats it as an opaque lookup key
// rather than parsing on-chain memo formats itself.
func invoiceIDFromAddress(ev indexerclient.Event) string {
	return ev.Address
}

// withdrawalQuoteID extracts the melt quote id a withdrawal
// confirmation settles, carried the same way as invoiceIDFromAddress.
func withdrawalQuoteID(ev indexerclient.Event) string {
	return ev.Address
}

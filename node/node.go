// Package node wires the mint protocol engine's components together
// into the single object the RPC surface drives: keyset manager,
// ledger, the three quote engines, the correlator and sweeper.
// Grounded on mint.go's Mint struct and LoadMint in the teacher.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/paynet-xyz/paynet-mint/cashierclient"
	"github.com/paynet-xyz/paynet-mint/config"
	"github.com/paynet-xyz/paynet-mint/correlator"
	"github.com/paynet-xyz/paynet-mint/indexerclient"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/ledger"
	"github.com/paynet-xyz/paynet-mint/pubsub"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
	"github.com/paynet-xyz/paynet-mint/quote/swap"
	"github.com/paynet-xyz/paynet-mint/signerclient"
	"github.com/paynet-xyz/paynet-mint/store/sqlite"
	"github.com/paynet-xyz/paynet-mint/sweeper"
)

const SweepInterval = 5 * time.Second

// Node is the assembled mint protocol engine for every unit this
// instance serves.
type Node struct {
	Config config.Config
	DB     *sqlite.DB

	Keysets *keyset.Manager
	Ledger  *ledger.Ledger

	MintQuotes *mintquote.Engine
	MeltQuotes *meltquote.Engine
	Swap       *swap.Engine

	Correlators map[string]*correlator.Correlator // per unit (one indexer stream each)
	Sweeper     *sweeper.Sweeper
	Publisher   *pubsub.PubSub

	logger *slog.Logger

	signers  map[string]signerclient.Client
	cashiers map[string]cashierclient.Client
	indexers map[string]indexerclient.Client

	tagToUnit map[uint32]string
}

// Load assembles a Node from cfg: opens the database, wires a
// per-unit signer/cashier/indexer client, and ensures an active
// keyset exists for every configured unit. Mirrors LoadMint's
// "open db, derive/load keysets, wire lightning client" sequence,
// generalized to multiple units and multiple external collaborators.
func Load(cfg config.Config, logger *slog.Logger) (*Node, error) {
	if err := os.MkdirAll(cfg.NodePath, 0700); err != nil {
		return nil, fmt.Errorf("node: creating data dir: %w", err)
	}

	db, err := sqlite.Open(cfg.NodePath)
	if err != nil {
		return nil, fmt.Errorf("node: opening database: %w", err)
	}

	n := &Node{
		Config:      cfg,
		DB:          db,
		Correlators: make(map[string]*correlator.Correlator),
		Publisher:   pubsub.New(),
		logger:      logger,
		signers:     make(map[string]signerclient.Client),
		cashiers:    make(map[string]cashierclient.Client),
		indexers:    make(map[string]indexerclient.Client),
		tagToUnit:   make(map[uint32]string),
	}

	keysetStore := sqlite.NewKeysetStore(db)
	ledgerStore := sqlite.NewLedgerStore(db)
	n.Ledger = ledger.New(ledgerStore)

	// The signer bound to the Manager is per-call resolved from
	// n.signers by unit; Manager needs a single default so non-unit
	// operations (none currently) still have one. Units are added via
	// addUnit below, which also backs the per-unit signer.
	n.Keysets, err = keyset.NewManager(unitRoutedSigner{n}, keysetStore, logger)
	if err != nil {
		return nil, fmt.Errorf("node: initializing keyset manager: %w", err)
	}

	n.MintQuotes = mintquote.NewEngine(sqlite.NewMintQuoteStore(db), n.Keysets, unitRoutedSigner{n}, n.Ledger, n.depositAddressFor)
	n.MeltQuotes = meltquote.NewEngine(sqlite.NewMeltQuoteStore(db), n.cashierFor, n.Ledger, n.Keysets, unitRoutedSigner{n}, n.estimateFee)
	n.Swap = swap.NewEngine(n.Keysets, unitRoutedSigner{n}, n.Ledger)
	n.Sweeper = sweeper.New(n.Ledger, SweepInterval, logger)

	for unit, backend := range cfg.Units {
		if err := n.addUnit(unit, backend); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (n *Node) addUnit(unit string, backend config.UnitBackend) error {
	signer, err := signerclient.Dial(backend.SignerAddress, n.Config.SignerTLS)
	if err != nil {
		return fmt.Errorf("node: dialing signer for unit %s: %w", unit, err)
	}
	n.signers[unit] = signer

	cashier, err := cashierclient.Dial(backend.CashierAddress)
	if err != nil {
		return fmt.Errorf("node: dialing cashier for unit %s: %w", unit, err)
	}
	n.cashiers[unit] = cashier

	indexer, err := indexerclient.Dial(backend.IndexerAddress)
	if err != nil {
		return fmt.Errorf("node: dialing indexer for unit %s: %w", unit, err)
	}
	n.indexers[unit] = indexer
	n.tagToUnit[keyset.UnitTag(unit)] = unit

	ctx := context.Background()
	if _, err := n.Keysets.EnsureActive(ctx, unit, backend.MaxOrder, backend.InputFeePpk); err != nil {
		return fmt.Errorf("node: ensuring active keyset for unit %s: %w", unit, err)
	}

	cursorStore := sqlite.NewCorrelatorStore(n.DB)
	n.Correlators[unit] = correlator.New(indexer, cursorStore, n.MintQuotes, n.MeltQuotes, n.Publisher, n.logger, backend.DepositAddress)

	return nil
}

func (n *Node) depositAddressFor(unit string) (string, error) {
	backend, ok := n.Config.Units[unit]
	if !ok {
		return "", fmt.Errorf("node: unit %s not configured", unit)
	}
	return backend.DepositAddress, nil
}

// estimateFee is a placeholder policy: a flat zero on-chain fee
// reserve until a real fee oracle is wired per unit. The shape
// (unit, destination, amount) -> fee matches meltquote.FeeEstimator
// so swapping in a real estimator later is a one-line change.
func (n *Node) estimateFee(unit, destination string, amount uint64) (uint64, error) {
	return 0, nil
}

// Run starts the correlator for every configured unit plus the
// sweeper in background goroutines and returns immediately; they stop
// when ctx is canceled.
func (n *Node) Run(ctx context.Context) {
	for unit, c := range n.Correlators {
		go func(unit string, c *correlator.Correlator) {
			for ctx.Err() == nil {
				if err := c.Run(ctx); err != nil && ctx.Err() == nil {
					n.logger.Error("correlator stopped, restarting", "unit", unit, "err", err)
					time.Sleep(time.Second)
				}
			}
		}(unit, c)
	}
	go n.Sweeper.Run(ctx)
}

func (n *Node) Close() error {
	return n.DB.Close()
}

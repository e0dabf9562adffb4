// Command paynetd runs the mint protocol engine as a long-lived
// daemon: it loads configuration, assembles a node.Node, starts the
// per-unit correlators and sweeper, and serves the JSON RPC surface
// until interrupted. Grounded on cmd/mint/mint.go in the teacher: same
// .env-then-signal-then-graceful-shutdown shape, wrapped in a single
// urfave/cli command the way the teacher's CLI entrypoints are.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/paynet-xyz/paynet-mint/config"
	"github.com/paynet-xyz/paynet-mint/node"
	"github.com/paynet-xyz/paynet-mint/rpcapi"
)

func main() {
	app := &cli.App{
		Name:  "paynetd",
		Usage: "run the paynet mint protocol engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "path to .env config file"},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("env"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "paynetd:", err)
		os.Exit(1)
	}
}

func run(envPath string) error {
	cfg, err := config.Load(envPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	n, err := node.Load(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading node: %w", err)
	}
	defer n.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	n.Run(ctx)

	addr := "127.0.0.1:" + cfg.Port
	server := rpcapi.New(n, addr, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("paynetd listening", "addr", addr)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down rpc server: %w", err)
		}
	}

	return nil
}

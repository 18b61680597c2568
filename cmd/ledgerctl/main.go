package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"loanledger/internal/app"
	"loanledger/internal/config"
	"loanledger/internal/infrastructure/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opener builds the app for a command; swapped out in tests.
type opener func() (*app.App, error)

func openApp() (*app.App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log)
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for the loan ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(open))
	root.AddCommand(scanCmd(open))
	root.AddCommand(dispatchCmd(open))
	root.AddCommand(outboxCmd(open))
	return root
}

// withApp runs fn with an app whose context is cancelled on SIGINT/SIGTERM.
func withApp(open opener, fn func(ctx context.Context, a *app.App) error) error {
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(_ context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrated")
				return nil
			})
		},
	}
}

func scanCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Mark every pending repayment due before today as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(ctx context.Context, a *app.App) error {
				rep, err := a.Scanner.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func dispatchCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver due notifications and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rounds, _ := cmd.Flags().GetInt("rounds")
			return withApp(open, func(ctx context.Context, a *app.App) error {
				total := 0
				for i := 0; i < rounds; i++ {
					n, err := a.Dispatcher.DispatchOnce(ctx)
					if err != nil {
						return err
					}
					total += n
					if n == 0 {
						break
					}
				}
				a.Log.Info("dispatch finished", zap.Int("handled", total))
				fmt.Fprintf(cmd.OutOrStdout(), "handled %d intents\n", total)
				return nil
			})
		},
	}
	cmd.Flags().IntP("rounds", "r", 1, "Maximum number of claim batches")
	return cmd
}

func outboxCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair the notification outbox",
	}

	failed := &cobra.Command{
		Use:   "failed",
		Short: "List notifications that exhausted their attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(open, func(ctx context.Context, a *app.App) error {
				rows, err := a.Dispatcher.ListFailed(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	failed.Flags().IntP("limit", "n", 50, "Maximum results")

	redrive := &cobra.Command{
		Use:   "redrive [id]",
		Short: "Queue a failed notification again with a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withApp(open, func(ctx context.Context, a *app.App) error {
				it, err := a.Dispatcher.Redrive(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), it)
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count notifications per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(ctx context.Context, a *app.App) error {
				st, err := a.Dispatcher.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}

	cmd.AddCommand(failed, redrive, stats)
	return cmd
}

package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/services"
)

// app holds what every subcommand needs once the root pre-run has opened
// the configured backend.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	service *services.LedgerService
	cleanup backend.CleanupFunc

	// flag overrides, applied on top of the environment
	ledgerFile  string
	backendType string
	logLevel    string
	currency    string

	logOutput io.Writer
}

// NewRootCmd builds the finance command tree. Log output goes to stderr so
// command output on stdout stays clean.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Stderr)
}

func newRootCmd(logOutput io.Writer) *cobra.Command {
	a := &app{logOutput: logOutput}

	root := &cobra.Command{
		Use:          "finance",
		Short:        "Personal finance tracker",
		Long:         "Record income and expenses in a CSV ledger, see totals and chart expenses by category.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.ledgerFile, "ledger", "", "ledger CSV file (env LEDGER_FILE)")
	flags.StringVar(&a.backendType, "backend", "", "data backend: csv, sqlite or memory (env DATA_BACKEND)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (env LOG_LEVEL)")
	flags.StringVar(&a.currency, "currency", "", "currency symbol for display (env CURRENCY_SYMBOL)")

	root.AddCommand(
		newAddCmd(a),
		newSummaryCmd(a),
		newListCmd(a),
		newChartCmd(a),
		newResetCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	// cobra skips post-run hooks when RunE fails, so cleanup wraps RunE instead
	for _, c := range root.Commands() {
		if c.RunE != nil {
			c.RunE = a.withCleanup(c.RunE)
		}
	}
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg := config.Load()
	if a.ledgerFile != "" {
		cfg.LedgerFile = a.ledgerFile
	}
	if a.backendType != "" {
		cfg.DataBackend = a.backendType
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.currency != "" {
		cfg.CurrencySymbol = a.currency
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = SetupLogger(a.logOutput, cfg.LogLevel)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	a.service = result.Service
	a.cleanup = result.Cleanup

	a.logger.Debug("Backend ready",
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldOperation, applog.OpStartup)
	return nil
}

// withCleanup releases the backend after run returns, whether or not it failed.
func (a *app) withCleanup(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

// Execute runs the root command; cobra prints the error before we exit.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"finance/internal/chart"
	"finance/internal/core"
	apphttp "finance/internal/http"
	"finance/internal/ledger"
	applog "finance/internal/log"
	"finance/internal/services"
)

// userError carries the message shown for a validation failure while
// keeping the underlying sentinel for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func friendly(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return &userError{"Please enter a valid amount.", err}
	case errors.Is(err, core.ErrInvalidDate):
		return &userError{"Please enter a valid date (YYYY-MM-DD).", err}
	case errors.Is(err, core.ErrInvalidType):
		return &userError{"Transaction type must be income or expense.", err}
	case errors.Is(err, core.ErrCategoryTooLong):
		return &userError{"Category is too long (max 100 characters).", err}
	case errors.Is(err, services.ErrInvalidMonth):
		return &userError{"Month must be YYYY-MM.", err}
	default:
		return err
	}
}

func newAddCmd(a *app) *cobra.Command {
	var amount, category, date string
	cmd := &cobra.Command{
		Use:       "add income|expense",
		Short:     "Record an income or expense",
		Example:   "  finance add expense --amount 12.50 --category Food\n  finance add income --amount 1500 --category Salary --date 2025-03-01",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"income", "expense"},
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, ref, err := a.service.AddTransaction(cmd.Context(), services.AddInput{
				Type:     args[0],
				Amount:   amount,
				Category: category,
				Date:     date,
			})
			if err != nil {
				return friendly(err)
			}
			a.logger.Debug("Transaction stored", applog.FieldLedgerRef, ref)
			fmt.Fprintf(cmd.OutOrStdout(), "%s added successfully!\n", tx.Type)
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 12.50")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date in YYYY-MM-DD format (default today)")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show total income, total expense and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service.Summary(cmd.Context())
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), a.cfg.CurrencySymbol, s)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var f services.TransactionFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.service.Transactions(cmd.Context(), f)
			if err != nil {
				return friendly(err)
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
				return nil
			}
			renderTransactions(cmd.OutOrStdout(), a.cfg.CurrencySymbol, txs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Type, "type", "t", "", "only income or expense")
	cmd.Flags().StringVarP(&f.Month, "month", "m", "", "only this month (YYYY-MM)")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 0, "show at most n rows (0 for all)")
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Write a pie chart of expenses by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.service.ExpenseBreakdown(cmd.Context())
			if errors.Is(err, services.ErrNoExpenses) {
				fmt.Fprintln(cmd.OutOrStdout(), "No expenses to show.")
				return nil
			}
			if err != nil {
				return err
			}
			renderBreakdown(cmd.OutOrStdout(), a.cfg.CurrencySymbol, rows)

			pie, err := chart.NewPie(chart.DefaultTitle, rows)
			if err != nil {
				return err
			}
			pie.Currency = a.cfg.CurrencySymbol
			if err := writeFile(out, pie.SVG); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "expenses.svg", "SVG output file")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "Clear all transactions? [y/N] ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "y", "yes":
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := a.service.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All transactions cleared!")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append the rows of a ledger CSV file to the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			txs, err := ledger.DecodeCSV(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			n, err := a.service.Import(cmd.Context(), txs)
			if err != nil {
				return err
			}
			a.logger.Info("Import finished", applog.FieldOperation, applog.OpImport, "rows", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions.\n", n)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every transaction as ledger CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				_, err := a.service.Export(cmd.Context(), cmd.OutOrStdout())
				return err
			}
			var n int
			err := writeFile(out, func(w io.Writer) error {
				var err error
				n, err = a.service.Export(cmd.Context(), w)
				return err
			})
			if err != nil {
				return err
			}
			a.logger.Info("Export finished", applog.FieldOperation, applog.OpExport, "rows", n, "file", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Port
			}
			srv := apphttp.NewServer(a.service, apphttp.Options{
				Addr:               ":" + port,
				Currency:           a.cfg.CurrencySymbol,
				CacheTTL:           a.cfg.CacheTTL,
				RateLimitPerMinute: a.cfg.RateLimitPerMinute,
				Logger:             a.logger,
			})
			srv.ReadTimeout = 10 * time.Second
			srv.WriteTimeout = 10 * time.Second
			srv.IdleTimeout = 60 * time.Second
			srv.MaxHeaderBytes = 1 << 16 // 64KB

			ctx, done := GracefulShutdown(cmd.Context(), a.logger, 30*time.Second, srv.Shutdown)

			a.logger.Info("Starting finance server",
				"port", port,
				applog.FieldBackend, a.cfg.DataBackend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Server error", applog.FieldError, err, "port", port)
				return err
			}

			WaitForShutdown(ctx, done)
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (env PORT)")
	return cmd
}

// writeFile renders into a temp file next to path and renames it into place.
func writeFile(path string, render func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := render(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"finance/internal/core"
	"finance/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	seed    []string
}

func NewSQLiteRepository(dbPath string, seed []string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		seed:    ledger.DedupeCategories(seed),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.TransactionWriter
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	row, err := r.queries.CreateTransaction(ctx, toParams(tx))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"tx_type", row.Type,
		"amount_cents", row.AmountCents,
		"category", row.Category,
		"date", row.Date)

	return strconv.FormatInt(row.ID, 10), nil
}

// AppendAll stores txs in a single database transaction. Nothing is written
// if any row fails.
func (r *SQLiteRepository) AppendAll(ctx context.Context, txs []core.Transaction) (int, error) {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	q := r.queries.WithTx(dbtx)
	for i, tx := range txs {
		if _, err := q.CreateTransaction(ctx, toParams(tx)); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transactions imported into SQLite", "count", len(txs))
	return len(txs), nil
}

// List implements ledger.TransactionLister
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Reset implements ledger.Resetter
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	if err := r.queries.DeleteAllTransactions(ctx); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "All transactions deleted from SQLite")
	return nil
}

// Categories implements ledger.TaxonomyReader
func (r *SQLiteRepository) Categories(ctx context.Context) ([]string, error) {
	used, err := r.queries.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return ledger.DedupeCategories(append(append([]string(nil), r.seed...), used...)), nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toParams(tx core.Transaction) CreateTransactionParams {
	return CreateTransactionParams{
		Type:        tx.Type.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Date:        tx.Date.String(),
	}
}

func fromRow(row Transaction) (core.Transaction, error) {
	txType, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:     txType,
		Amount:   core.Money{Cents: row.AmountCents},
		Category: row.Category,
		Date:     date,
	}, nil
}

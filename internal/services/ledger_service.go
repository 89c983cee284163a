package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/ledger"
	applog "finance/internal/log"
)

// ErrNoExpenses is returned by ExpenseBreakdown when the ledger holds no
// Expense rows.
var ErrNoExpenses = errors.New("no expenses to show")

// ErrInvalidMonth reports a month filter that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month (expected YYYY-MM)")

// Publisher receives an event after every ledger mutation.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
	Close() error
}

// BulkAppender is implemented by stores that can import many rows at once.
type BulkAppender interface {
	AppendAll(ctx context.Context, txs []core.Transaction) (int, error)
}

// Pinger is implemented by stores with a connection to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerService orchestrates ledger operations across the store and the
// optional event publisher.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

func NewLedgerService(store ledger.Store, publisher Publisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentLedger)
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// AddInput carries the raw form or flag values for a new transaction.
type AddInput struct {
	Type     string
	Amount   string
	Category string
	Date     string
}

// AddTransaction parses and validates in, appends it to the ledger and
// publishes a transaction.recorded event. A failed publish is logged only.
func (s *LedgerService) AddTransaction(ctx context.Context, in AddInput) (core.Transaction, string, error) {
	txType, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, "", err
	}
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Transaction{}, "", err
	}
	date := core.Today()
	if strings.TrimSpace(in.Date) != "" {
		if date, err = core.ParseDate(in.Date); err != nil {
			return core.Transaction{}, "", err
		}
	}

	tx := core.Transaction{
		Type:     txType,
		Amount:   core.Money{Cents: cents},
		Category: SanitizeCategory(in.Category),
		Date:     date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, "", err
	}

	ref, err := s.store.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, "", fmt.Errorf("append transaction: %w", err)
	}
	s.events.LogTransactionCreated(ctx, tx.Type.String(), tx.Amount.Cents, tx.Category, tx.Date.String(), ref)

	s.publish(ctx, amqp.NewTransactionRecordedEvent(tx, ref))
	return tx, ref, nil
}

// Summary totals the whole ledger.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.Summarize(txs), nil
}

// ExpenseBreakdown groups expenses by category for the pie chart.
func (s *LedgerService) ExpenseBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	rows := core.ExpensesByCategory(txs)
	if len(rows) == 0 {
		return nil, ErrNoExpenses
	}
	return rows, nil
}

// TransactionFilter narrows Transactions. Zero values match everything.
type TransactionFilter struct {
	Type  string
	Month string // YYYY-MM
	Limit int
}

// Transactions returns matching rows newest first. Rows on the same date
// keep reverse insertion order.
func (s *LedgerService) Transactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var txType core.TransactionType
	if strings.TrimSpace(f.Type) != "" {
		t, err := core.ParseTransactionType(f.Type)
		if err != nil {
			return nil, err
		}
		txType = t
	}
	month := strings.TrimSpace(f.Month)
	if month != "" && !validMonth(month) {
		return nil, ErrInvalidMonth
	}

	txs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if txType != "" && tx.Type != txType {
			continue
		}
		if month != "" && tx.Date.MonthKey() != month {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Categories returns suggestions for the category inputs.
func (s *LedgerService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Reset clears the ledger and publishes a ledger.reset event.
func (s *LedgerService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger reset", applog.FieldOperation, applog.OpReset)
	s.publish(ctx, amqp.NewLedgerResetEvent())
	return nil
}

// Import appends txs to the ledger, in one batch when the store supports it.
// Every row is validated before the first one is written.
func (s *LedgerService) Import(ctx context.Context, txs []core.Transaction) (int, error) {
	if bulk, ok := s.store.(BulkAppender); ok {
		n, err := bulk.AppendAll(ctx, txs)
		if err != nil {
			return 0, fmt.Errorf("import transactions: %w", err)
		}
		s.logger.InfoContext(ctx, "Transactions imported", applog.FieldOperation, applog.OpImport, "count", n)
		return n, nil
	}

	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return 0, fmt.Errorf("import row %d: %w", i+1, err)
		}
	}
	for i, tx := range txs {
		if _, err := s.store.Append(ctx, tx); err != nil {
			return i, fmt.Errorf("import row %d: %w", i+1, err)
		}
	}
	s.logger.InfoContext(ctx, "Transactions imported", applog.FieldOperation, applog.OpImport, "count", len(txs))
	return len(txs), nil
}

// Export writes the ledger to w in the CSV ledger format.
func (s *LedgerService) Export(ctx context.Context, w io.Writer) (int, error) {
	txs, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	if err := ledger.EncodeCSV(w, txs); err != nil {
		return 0, fmt.Errorf("encode ledger: %w", err)
	}
	s.logger.DebugContext(ctx, "Ledger exported", applog.FieldOperation, applog.OpExport, "count", len(txs))
	return len(txs), nil
}

// Ping reports whether the store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.List(ctx)
	return err
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		s.events.LogError(ctx, "Failed to publish ledger event", err,
			applog.ComponentAMQP, applog.OpPublish, applog.LogFields{"event_kind": event.Kind})
	}
}

// Close closes both the publisher and the store when it holds resources.
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	return errors.Join(errs...)
}

// SanitizeCategory trims the name and drops control characters.
func SanitizeCategory(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func validMonth(s string) bool {
	_, err := core.ParseDate(s + "-01")
	return err == nil
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"finance/internal/core"
	"finance/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	seed  []string
	items []core.Transaction
}

func New(seed []string) *Store {
	return &Store{seed: ledger.DedupeCategories(seed)}
}

// NewFromFile seeds categories from a YAML categories file, falling back to
// the defaults when it cannot be read.
func NewFromFile(path string) *Store {
	cats, err := ledger.LoadCategories(path)
	if err != nil {
		cats = ledger.DefaultCategories
	}
	return New(cats)
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// List returns a copy of the stored transactions.
func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

// Categories returns seeded categories followed by the ones in use.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	txs, _ := s.List(ctx)
	return ledger.MergeCategories(s.seed, txs), nil
}

// Package ledger defines the storage ports for transactions and the
// file formats shared by every adapter.
package ledger

import (
	"context"

	"finance/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// Append stores one transaction and returns an adapter-specific reference.
		Append(ctx context.Context, tx core.Transaction) (ref string, err error)
	}

	TransactionLister interface {
		// List returns every transaction in insertion order.
		List(ctx context.Context) ([]core.Transaction, error)
	}

	Resetter interface {
		// Reset removes every transaction.
		Reset(ctx context.Context) error
	}

	// TaxonomyReader returns category suggestions for the input forms.
	TaxonomyReader interface {
		Categories(ctx context.Context) ([]string, error)
	}

	Store interface {
		TransactionWriter
		TransactionLister
		Resetter
		TaxonomyReader
	}
)

// MergeCategories returns the seeded names followed by categories used in txs,
// without blanks or duplicates.
func MergeCategories(seed []string, txs []core.Transaction) []string {
	all := append([]string(nil), seed...)
	for _, tx := range txs {
		all = append(all, tx.Category)
	}
	return DedupeCategories(all)
}

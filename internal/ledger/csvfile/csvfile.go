// Package csvfile stores the ledger as a flat CSV file that is read and
// rewritten in full on every mutation.
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"finance/internal/core"
	"finance/internal/ledger"
)

type Store struct {
	mu   sync.Mutex
	path string
	seed []string
}

// Open returns a store backed by path, creating the file with only the header
// row when it does not exist yet.
func Open(path string, seed []string) (*Store, error) {
	s := &Store{path: path, seed: ledger.DedupeCategories(seed)}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create ledger directory: %w", err)
			}
		}
		if err := s.write(nil); err != nil {
			return nil, fmt.Errorf("create ledger file: %w", err)
		}
		slog.Info("Created ledger file", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("stat ledger file: %w", err)
	}
	return s, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Append reads the whole file, adds tx and writes it back. The returned
// reference is the data row number.
func (s *Store) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.read()
	if err != nil {
		return "", err
	}
	txs = append(txs, tx)
	if err := s.write(txs); err != nil {
		return "", fmt.Errorf("write ledger file: %w", err)
	}
	return "csv:" + strconv.Itoa(len(txs)), nil
}

// List implements ledger.TransactionLister
func (s *Store) List(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Reset rewrites the file with only the header row.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(nil); err != nil {
		return fmt.Errorf("reset ledger file: %w", err)
	}
	return nil
}

// Categories implements ledger.TaxonomyReader
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.MergeCategories(s.seed, txs), nil
}

func (s *Store) read() ([]core.Transaction, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()
	txs, err := ledger.DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return txs, nil
}

// write replaces the file through a temporary sibling and a rename.
func (s *Store) write(txs []core.Transaction) error {
	var buf bytes.Buffer
	if err := ledger.EncodeCSV(&buf, txs); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

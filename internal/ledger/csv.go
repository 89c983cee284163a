package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"finance/internal/core"
)

// Header is the column layout of the ledger file.
var Header = []string{"Type", "Amount", "Category", "Date"}

// ErrMalformedLedger reports a ledger file that cannot be decoded.
var ErrMalformedLedger = errors.New("malformed ledger file")

// DecodeCSV reads a ledger file. Columns are matched by header name, so files
// with reordered columns are accepted. An empty input yields no transactions.
func DecodeCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedLedger, err)
	}
	cols, err := columnIndex(head)
	if err != nil {
		return nil, err
	}

	var txs []core.Transaction
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLedger, err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		tx, err := decodeRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedLedger, line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// EncodeCSV writes the header followed by one row per transaction.
func EncodeCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write(encodeRecord(tx)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRecord(tx core.Transaction) []string {
	return []string{tx.Type.String(), tx.Amount.Plain(), tx.Category, tx.Date.String()}
}

func columnIndex(head []string) ([4]int, error) {
	idx := [4]int{-1, -1, -1, -1}
	for i, name := range head {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		for j, want := range Header {
			if strings.EqualFold(name, want) {
				idx[j] = i
			}
		}
	}
	for j, i := range idx {
		if i < 0 {
			return idx, fmt.Errorf("%w: missing column %q", ErrMalformedLedger, Header[j])
		}
	}
	return idx, nil
}

func decodeRecord(rec []string, cols [4]int) (core.Transaction, error) {
	field := func(j int) string {
		if cols[j] >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[cols[j]])
	}

	txType, err := core.ParseTransactionType(field(0))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("type %q: %w", field(0), err)
	}
	amount, err := core.ParseStoredAmount(field(1))
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(field(3))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", field(3), err)
	}
	return core.Transaction{
		Type:     txType,
		Amount:   amount,
		Category: field(2),
		Date:     date,
	}, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

package ledger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finance/internal/core"
)

func TestDecodeCSVFloatAmounts(t *testing.T) {
	in := "Type,Amount,Category,Date\n" +
		"Income,5000.0,Salary,2025-09-01\n" +
		"Expense,120.5,Food,2025-09-02\n" +
		"Expense,80.0,,2025-09-03\n"
	txs, err := DecodeCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(txs))
	}
	if txs[1].Amount.Cents != 12050 || txs[1].Category != "Food" {
		t.Errorf("unexpected row %+v", txs[1])
	}
	if txs[2].Category != "" || txs[2].CategoryLabel() != core.UncategorizedLabel {
		t.Errorf("expected empty category, got %q", txs[2].Category)
	}
}

func TestDecodeCSVReorderedColumns(t *testing.T) {
	in := "\ufeffdate,category,amount,type\n2025-01-02,Rent,700,expense\n"
	txs, err := DecodeCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 1 || txs[0].Type != core.Expense || txs[0].Amount.Cents != 70000 || txs[0].Category != "Rent" {
		t.Fatalf("unexpected %+v", txs)
	}
}

func TestDecodeCSVEdgeCases(t *testing.T) {
	txs, err := DecodeCSV(strings.NewReader(""))
	if err != nil || len(txs) != 0 {
		t.Fatalf("empty input: %v %v", txs, err)
	}

	txs, err = DecodeCSV(strings.NewReader("Type,Amount,Category,Date\n,,,\n"))
	if err != nil || len(txs) != 0 {
		t.Fatalf("blank row should be skipped: %v %v", txs, err)
	}

	bad := []string{
		"Type,Amount,Date\nIncome,1,2025-01-01\n",
		"Type,Amount,Category,Date\nTransfer,1,x,2025-01-01\n",
		"Type,Amount,Category,Date\nIncome,1,x,01/01/2025\n",
	}
	for _, in := range bad {
		if _, err := DecodeCSV(strings.NewReader(in)); !errors.Is(err, ErrMalformedLedger) {
			t.Errorf("%q: expected ErrMalformedLedger, got %v", in, err)
		}
	}
}

func TestDecodeCSVRejectsOverflowingAmount(t *testing.T) {
	in := "Type,Amount,Category,Date\nIncome,10,Salary,2025-01-01\nExpense,1e30,Food,2025-01-02\n"
	_, err := DecodeCSV(strings.NewReader(in))
	if !errors.Is(err, ErrMalformedLedger) {
		t.Fatalf("expected ErrMalformedLedger, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error should name line 3: %v", err)
	}
}

func TestEncodeDecodeKeepsRows(t *testing.T) {
	txs := []core.Transaction{
		{Type: core.Income, Amount: core.Money{Cents: 1}, Category: `quote "x"`, Date: core.NewDate(2024, 12, 31)},
		{Type: core.Expense, Amount: core.Money{Cents: 99999}, Category: "multi\nline", Date: core.NewDate(2025, 1, 1)},
	}
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, txs); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Category != txs[0].Category || got[1].Category != txs[1].Category || got[1].Amount != txs[1].Amount {
		t.Fatalf("rows changed: %+v", got)
	}
}

func TestLoadCategories(t *testing.T) {
	dir := t.TempDir()

	cats, err := LoadCategories(filepath.Join(dir, "missing.yaml"))
	if err != nil || len(cats) != len(DefaultCategories) {
		t.Fatalf("expected defaults, got %v err=%v", cats, err)
	}

	path := filepath.Join(dir, "categories.yaml")
	content := "income:\n  - Salary\n  - Bonus\nexpense:\n  - Food\n  - ' Salary '\n  - ''\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cats, err = LoadCategories(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Join(cats, ",") != "Salary,Bonus,Food" {
		t.Fatalf("unexpected categories %v", cats)
	}

	if err := os.WriteFile(path, []byte("income: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCategories(path); err == nil {
		t.Fatal("expected parse error")
	}
}

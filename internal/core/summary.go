package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the ledger-wide totals.
type Summary struct {
	Income  Money
	Expense Money
	Balance Money
	Count   int
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string
	Amount  Money
	Percent decimal.Decimal // share of the total, one decimal place
}

// Summarize totals income and expense rows. Balance is Income minus Expense
// and may be negative.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			s.Income = s.Income.Add(tx.Amount)
		case Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		default:
			continue
		}
		s.Count++
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// ExpensesByCategory groups expense rows by category, sorted by name.
// It returns an empty slice when there are no expenses.
func ExpensesByCategory(txs []Transaction) []CategoryAmount {
	sums := map[string]int64{}
	var total int64
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		sums[tx.CategoryLabel()] += tx.Amount.Cents
		total += tx.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{
			Name:    name,
			Amount:  Money{Cents: cents},
			Percent: percentOf(cents, total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func percentOf(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1)
}

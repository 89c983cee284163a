package cli

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"finance/internal/core"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSummary(w io.Writer, currency string, s core.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "Amount"})
	t.AppendRows([]table.Row{
		{"Total Income", core.FormatAmount(currency, s.Income.Cents)},
		{"Total Expense", core.FormatAmount(currency, s.Expense.Cents)},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Balance", core.FormatAmount(currency, s.Balance.Cents)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

func renderTransactions(w io.Writer, currency string, txs []core.Transaction) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Type", "Category", "Amount"})
	for _, tx := range txs {
		t.AppendRow(table.Row{tx.Date.String(), tx.Type.String(), tx.CategoryLabel(), core.FormatAmount(currency, tx.Amount.Cents)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	t.Render()
}

func renderBreakdown(w io.Writer, currency string, rows []core.CategoryAmount) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Category", "Amount", "Share"})
	var total core.Money
	for _, r := range rows {
		total = total.Add(r.Amount)
		t.AppendRow(table.Row{r.Name, core.FormatAmount(currency, r.Amount.Cents), r.Percent.StringFixed(1) + "%"})
	}
	t.AppendFooter(table.Row{"Total", core.FormatAmount(currency, total.Cents), ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

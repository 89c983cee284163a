package http

import (
	"bytes"
	"context"
	"net/http"

	"finance/internal/chart"
	"finance/internal/core"
	applog "finance/internal/log"
)

type chartRow struct {
	Name    string
	Amount  string
	Percent string
	Color   string
}

// handleSummary renders Total Income, Total Expense and Balance.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.getSummary(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Summary error", applog.FieldError, err)
		InternalServerError("Error loading summary").Write(w)
		return
	}
	s.render(w, r, "summary", sum)
}

// handleChartPartial renders the chart image with its legend table, or the
// empty state.
func (s *Server) handleChartPartial(w http.ResponseWriter, r *http.Request) {
	rows, err := s.getBreakdown(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Breakdown error", applog.FieldError, err)
		InternalServerError("Error loading chart").Write(w)
		return
	}

	data := struct {
		Version string
		Total   string
		Rows    []chartRow
	}{Version: s.chartVersion()}

	if pie, err := chart.NewPie(chart.DefaultTitle, rows); err == nil {
		var total core.Money
		for _, sl := range pie.Slices() {
			total = total.Add(sl.Amount)
			data.Rows = append(data.Rows, chartRow{
				Name:    sl.Label,
				Amount:  s.formatMoney(sl.Amount),
				Percent: sl.Percent,
				Color:   sl.Color,
			})
		}
		data.Total = s.formatMoney(total)
	}
	s.render(w, r, "chart", data)
}

// handleChartSVG serves the pie chart; 404 when there is nothing to plot.
func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := cachedLoad(r.Context(), s, s.chartCache, keyChart, s.renderChart)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render error",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentChart)
		InternalServerError("Error rendering chart").Write(w)
		return
	}
	if len(svg) == 0 {
		NotFoundError("No expenses to show.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(svg)
}

// renderChart returns nil bytes when there are no expenses.
func (s *Server) renderChart(ctx context.Context) ([]byte, error) {
	rows, err := s.getBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	pie, err := chart.NewPie(chart.DefaultTitle, rows)
	if err != nil {
		return nil, nil
	}
	pie.Currency = s.currency
	var buf bytes.Buffer
	if err := pie.SVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handleTransactions renders the recent transactions table.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	filter := ParseTransactionFilter(r.URL.Query())
	txs, err := s.ledger.Transactions(r.Context(), filter)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List transactions error",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpList)
		InternalServerError("Error loading transactions").Write(w)
		return
	}

	type row struct {
		Date     string
		Type     string
		Category string
		Amount   string
		Income   bool
	}
	data := struct {
		Type  string
		Month string
		Rows  []row
	}{Type: filter.Type, Month: filter.Month}
	for _, tx := range txs {
		data.Rows = append(data.Rows, row{
			Date:     tx.Date.String(),
			Type:     tx.Type.String(),
			Category: tx.CategoryLabel(),
			Amount:   s.formatMoney(tx.Amount),
			Income:   tx.Type == core.Income,
		})
	}
	s.render(w, r, "transactions", data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution error",
			applog.FieldError, err,
			"template", name)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

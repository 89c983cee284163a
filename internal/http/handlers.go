package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["ledger"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"summary_entries":   s.summaryCache.Size(),
		"breakdown_entries": s.breakdownCache.Size(),
		"chart_entries":     s.chartCache.Size(),
		"status":            "ok",
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	created := atomic.LoadInt64(&s.appMetrics.transactionsCreated)
	resets := atomic.LoadInt64(&s.appMetrics.resets)
	uptime := time.Since(s.appMetrics.uptime)

	var hits, misses int64
	for _, st := range s.cacheStats() {
		hits += st.Hits
		misses += st.Misses
	}

	w.WriteHeader(http.StatusOK)

	// Write metrics in Prometheus-like format
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Total number of 5xx responses\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP transactions_created_total Total number of transactions created\n")
	fmt.Fprintf(w, "# TYPE transactions_created_total counter\n")
	fmt.Fprintf(w, "transactions_created_total %d\n\n", created)

	fmt.Fprintf(w, "# HELP ledger_resets_total Total number of ledger resets\n")
	fmt.Fprintf(w, "# TYPE ledger_resets_total counter\n")
	fmt.Fprintf(w, "ledger_resets_total %d\n\n", resets)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", hits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", misses)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Category list error", applog.FieldError, err)
	}

	type form struct {
		Type     string
		Today    string
		Currency string
	}
	today := core.Today().String()
	data := struct {
		Categories []string
		Forms      []form
	}{
		Categories: cats,
		Forms: []form{
			{Type: core.Income.String(), Today: today, Currency: s.currency},
			{Type: core.Expense.String(), Today: today, Currency: s.currency},
		},
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := applog.FromContext(r.Context())

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(r.Context(), "Parse body error", applog.FieldError, err, applog.FieldPath, r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	tx, ref, err := s.ledger.AddTransaction(r.Context(), parser.AddInput())
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to save transaction",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpAppend)
		InternalServerError("Error saving transaction").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	s.invalidate()

	logger.InfoContext(r.Context(), "Transaction created",
		applog.FieldTxType, tx.Type.String(),
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldLedgerRef, ref)

	NewHTMXResponse().
		TriggerTransactionCreated(tx.Type.String(), tx.Date.String()).
		TriggerSummaryRefresh().
		TriggerFormReset().
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(tx.Type.String()) + ` added successfully!</div>`).
		Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	if err := s.ledger.Reset(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to reset ledger",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpReset)
		InternalServerError("Error clearing transactions").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.resets, 1)
	s.invalidate()

	NewHTMXResponse().
		TriggerLedgerReset().
		TriggerSummaryRefresh().
		BodyHTML(`<div class="success">All transactions cleared!</div>`).
		Write(w)
}

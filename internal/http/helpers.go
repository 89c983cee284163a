package http

import (
	"context"
	"errors"
	"html/template"
	"strings"

	"finance/internal/cache"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/services"
)

// validationMessage maps service validation errors to the text shown to the user.
func validationMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount.", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Please enter a valid date (YYYY-MM-DD).", true
	case errors.Is(err, core.ErrInvalidType):
		return "Please choose Income or Expense.", true
	case errors.Is(err, core.ErrCategoryTooLong):
		return "Category is too long (max 100 characters).", true
	case errors.Is(err, services.ErrInvalidMonth):
		return "Please enter a valid month (YYYY-MM).", true
	default:
		return "", false
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func (s *Server) formatMoney(m core.Money) string {
	return core.FormatAmount(s.currency, m.Cents)
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": s.formatMoney,
		"negative": func(m core.Money) bool {
			return m.Cents < 0
		},
	}
}

// cachedLoad serves key from c, loading it through the singleflight group on
// a miss. A result is only cached if no mutation happened while it loaded.
func cachedLoad[T any](ctx context.Context, s *Server, c *cache.LRUCache[T], key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Cache hit", "key", key)
		return v, nil
	}

	gen := s.generation.Load()
	v, err, _ := s.group.Do(key+"@"+s.chartVersion(), func() (any, error) {
		// detached from the request so one canceled caller doesn't fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
		defer cancel()
		data, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if s.generation.Load() == gen {
			c.Set(key, data)
		}
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *Server) getSummary(ctx context.Context) (core.Summary, error) {
	return cachedLoad(ctx, s, s.summaryCache, keySummary, s.ledger.Summary)
}

// getBreakdown returns an empty slice when there are no expenses.
func (s *Server) getBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	return cachedLoad(ctx, s, s.breakdownCache, keyBreakdown, func(ctx context.Context) ([]core.CategoryAmount, error) {
		rows, err := s.ledger.ExpenseBreakdown(ctx)
		if errors.Is(err, services.ErrNoExpenses) {
			return []core.CategoryAmount{}, nil
		}
		return rows, err
	})
}

func (s *Server) cacheStats() []cache.Stats {
	return []cache.Stats{
		s.summaryCache.Stats(),
		s.breakdownCache.Stats(),
		s.chartCache.Stats(),
	}
}

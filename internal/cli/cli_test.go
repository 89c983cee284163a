package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"finance/internal/core"
)

type env struct {
	dir    string
	ledger string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "csv")
	t.Setenv("CATEGORIES_FILE", filepath.Join(dir, "categories.yaml"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PORT", "8081")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("CACHE_TTL", "1m")
	return env{dir: dir, ledger: filepath.Join(dir, "transactions.csv")}
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--ledger", e.ledger, "--currency", "₹"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("finance %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestAddSummaryAndList(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "add", "income", "--amount", "1000", "--category", "Salary", "--date", "2025-03-01")
	if strings.TrimSpace(out) != "Income added successfully!" {
		t.Fatalf("unexpected add output %q", out)
	}
	e.mustRun(t, "add", "expense", "-a", "200", "-c", "Food", "-d", "2025-03-02")
	e.mustRun(t, "add", "expense", "-a", "50.5", "-c", "Transport", "-d", "2025-03-03")

	out = e.mustRun(t, "summary")
	for _, want := range []string{"Total Income", "₹1000.00", "Total Expense", "₹250.50", "Balance", "₹749.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}

	out = e.mustRun(t, "list", "--type", "expense")
	if !strings.Contains(out, "Transport") || strings.Contains(out, "Salary") {
		t.Fatalf("unexpected list:\n%s", out)
	}
	if strings.Index(out, "2025-03-03") > strings.Index(out, "2025-03-02") {
		t.Fatalf("expected newest first:\n%s", out)
	}

	data, err := os.ReadFile(e.ledger)
	if err != nil {
		t.Fatal(err)
	}
	want := "Type,Amount,Category,Date\n" +
		"Income,1000.00,Salary,2025-03-01\n" +
		"Expense,200.00,Food,2025-03-02\n" +
		"Expense,50.50,Transport,2025-03-03\n"
	if string(data) != want {
		t.Fatalf("ledger file:\n%s\nwant:\n%s", data, want)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		args []string
		want error
		msg  string
	}{
		{[]string{"add", "expense", "--amount", "abc"}, core.ErrInvalidAmount, "Please enter a valid amount."},
		{[]string{"add", "expense", "--amount", "0"}, core.ErrInvalidAmount, "Please enter a valid amount."},
		{[]string{"add", "expense", "--amount", "5", "--date", "03/09/2025"}, core.ErrInvalidDate, "Please enter a valid date (YYYY-MM-DD)."},
		{[]string{"add", "transfer", "--amount", "5"}, core.ErrInvalidType, "Transaction type must be income or expense."},
	}
	for _, tc := range cases {
		_, err := e.run(t, "", tc.args...)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.args, tc.want, err)
		}
		if err.Error() != tc.msg {
			t.Fatalf("%v: message %q", tc.args, err.Error())
		}
	}

	out := e.mustRun(t, "list")
	if strings.TrimSpace(out) != "No transactions." {
		t.Fatalf("invalid input must not be stored, got:\n%s", out)
	}
}

func TestChart(t *testing.T) {
	e := newEnv(t)
	svg := filepath.Join(e.dir, "out.svg")

	out := e.mustRun(t, "chart", "--out", svg)
	if strings.TrimSpace(out) != "No expenses to show." {
		t.Fatalf("unexpected empty chart output %q", out)
	}
	if _, err := os.Stat(svg); !os.IsNotExist(err) {
		t.Fatalf("no file expected for empty ledger, stat err=%v", err)
	}

	e.mustRun(t, "add", "income", "-a", "100", "-c", "Salary")
	e.mustRun(t, "add", "expense", "-a", "30", "-c", "Food")
	e.mustRun(t, "add", "expense", "-a", "10", "-c", "Rent")

	out = e.mustRun(t, "chart", "--out", svg)
	for _, want := range []string{"Food", "75.0%", "Rent", "25.0%", "Chart written to"} {
		if !strings.Contains(out, want) {
			t.Fatalf("chart output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") || !strings.Contains(string(data), "Expenses by Category") {
		t.Fatalf("unexpected svg:\n%s", data)
	}
}

func TestReset(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "add", "expense", "-a", "5", "-c", "Food")

	out, err := e.run(t, "n\n", "reset")
	if err != nil || !strings.Contains(out, "Aborted.") {
		t.Fatalf("expected abort, got %q err=%v", out, err)
	}
	if out := e.mustRun(t, "list"); !strings.Contains(out, "Food") {
		t.Fatalf("aborted reset cleared ledger:\n%s", out)
	}

	out, err = e.run(t, "yes\n", "reset")
	if err != nil || !strings.Contains(out, "All transactions cleared!") {
		t.Fatalf("expected reset, got %q err=%v", out, err)
	}

	e.mustRun(t, "add", "expense", "-a", "5", "-c", "Food")
	out = e.mustRun(t, "reset", "--yes")
	if strings.TrimSpace(out) != "All transactions cleared!" {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(e.ledger)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Type,Amount,Category,Date\n" {
		t.Fatalf("reset should keep only the header, got %q", data)
	}
}

func TestExportImport(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "add", "income", "-a", "1000", "-c", "Salary", "-d", "2025-03-01")
	e.mustRun(t, "add", "expense", "-a", "12.34", "-c", "Food, drinks", "-d", "2025-03-02")

	dump := filepath.Join(e.dir, "dump.csv")
	e.mustRun(t, "export", "--out", dump)

	stdout := e.mustRun(t, "export")
	file, err := os.ReadFile(dump)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != string(file) {
		t.Fatalf("stdout and file exports differ:\n%s\n---\n%s", stdout, file)
	}

	e.mustRun(t, "reset", "--yes")
	out := e.mustRun(t, "import", dump)
	if strings.TrimSpace(out) != "Imported 2 transactions." {
		t.Fatalf("unexpected import output %q", out)
	}

	out = e.mustRun(t, "summary")
	if !strings.Contains(out, "₹987.66") {
		t.Fatalf("balance after import wrong:\n%s", out)
	}
}

func TestImportIntoMemoryBackend(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(e.dir, "src.csv")
	if err := os.WriteFile(src, []byte("Type,Amount,Category,Date\nExpense,50.0,Food,2025-01-05\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := e.mustRun(t, "--backend", "memory", "import", src)
	if strings.TrimSpace(out) != "Imported 1 transactions." {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(e.ledger); !os.IsNotExist(err) {
		t.Fatalf("memory backend must not touch the ledger file, stat err=%v", err)
	}
}

func TestInvalidBackend(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "", "--backend", "postgres", "summary"); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestCleanupRunsWhenCommandFails(t *testing.T) {
	closed := 0
	a := &app{cleanup: func() error { closed++; return nil }}
	run := a.withCleanup(func(*cobra.Command, []string) error { return core.ErrInvalidAmount })

	if err := run(nil, nil); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected the command error, got %v", err)
	}
	if closed != 1 {
		t.Fatalf("cleanup ran %d times, want 1", closed)
	}
	if err := a.close(); err != nil || closed != 1 {
		t.Fatalf("cleanup must run once, ran %d times (err=%v)", closed, err)
	}
}

func TestCleanupErrorSurfacesOnSuccess(t *testing.T) {
	boom := errors.New("close failed")
	a := &app{cleanup: func() error { return boom }}
	run := a.withCleanup(func(*cobra.Command, []string) error { return nil })
	if err := run(nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected cleanup error, got %v", err)
	}
}

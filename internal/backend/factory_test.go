package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"finance/internal/config"
	"finance/internal/ledger/csvfile"
	"finance/internal/ledger/memory"
	"finance/internal/services"
	"finance/internal/storage"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets should not be valid")
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[0] != "csv" {
		t.Errorf("unexpected type strings %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", LedgerFile: "l.csv", CategoriesFile: "c.yaml"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.LedgerFile != "l.csv" || cfg.CategoriesFile != "c.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	app.DataBackend = "postgres"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, LedgerFile: "t.csv"}, false},
		{"csv missing file", Config{Type: CSVBackend}, true},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"amqp without exchange", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	factory := NewFactory(nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, r *BackendResult)
	}{
		{
			name: "csv",
			cfg:  Config{Type: CSVBackend, LedgerFile: filepath.Join(dir, "ledger", "transactions.csv")},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*csvfile.Store); !ok {
					t.Fatalf("expected csvfile store, got %T", r.Store)
				}
				if _, err := os.Stat(filepath.Join(dir, "ledger", "transactions.csv")); err != nil {
					t.Fatalf("ledger file not created: %v", err)
				}
			},
		},
		{
			name: "sqlite",
			cfg:  Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "finance.db")},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*storage.SQLiteRepository); !ok {
					t.Fatalf("expected sqlite store, got %T", r.Store)
				}
			},
		},
		{
			name: "memory",
			cfg:  Config{Type: MemoryBackend},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Store.(*memory.Store); !ok {
					t.Fatalf("expected memory store, got %T", r.Store)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("create backend: %v", err)
			}
			defer res.Cleanup()
			tc.check(t, res)

			if _, _, err := res.Service.AddTransaction(ctx, services.AddInput{Type: "Expense", Amount: "12.5", Category: "Food"}); err != nil {
				t.Fatalf("add through service: %v", err)
			}
			sum, err := res.Service.Summary(ctx)
			if err != nil || sum.Expense.Cents != 1250 {
				t.Fatalf("summary = %+v err=%v", sum, err)
			}
		})
	}
}

func TestCreateBackendMalformedCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte("income: [oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           CSVBackend,
		LedgerFile:     filepath.Join(t.TempDir(), "t.csv"),
		CategoriesFile: path,
	})
	if err == nil {
		t.Fatal("expected error for malformed categories file")
	}
}

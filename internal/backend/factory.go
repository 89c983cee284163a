package backend

import (
	"context"
	"fmt"

	"finance/internal/amqp"
	"finance/internal/ledger"
	"finance/internal/ledger/csvfile"
	"finance/internal/ledger/memory"
	applog "finance/internal/log"
	"finance/internal/services"
	"finance/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case CSVBackend:
		store, err = f.createCSVBackend(config)
	case SQLiteBackend:
		store, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		store = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
			publisher = client
		}
	}

	svc := services.NewLedgerService(store, publisher, f.logger)
	return &BackendResult{
		Store:   store,
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) (ledger.Store, error) {
	seed, err := ledger.LoadCategories(config.CategoriesFile)
	if err != nil {
		return nil, err
	}
	store, err := csvfile.Open(config.LedgerFile, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}

	f.logger.Info("Initialized CSV backend", "ledger_file", config.LedgerFile)
	return store, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (ledger.Store, error) {
	seed, err := ledger.LoadCategories(config.CategoriesFile)
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) ledger.Store {
	store := memory.NewFromFile(config.CategoriesFile)
	f.logger.Info("Initialized memory backend", "categories_file", config.CategoriesFile)
	return store
}

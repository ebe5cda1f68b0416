package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenseview/internal/adapters"
	"expenseview/internal/amqp"
	"expenseview/internal/cache"
	"expenseview/internal/log"
	"expenseview/internal/services"
	"expenseview/internal/source"
	"expenseview/internal/source/memory"
	"expenseview/internal/source/remote"
	"expenseview/internal/source/sheets"
	"expenseview/internal/storage"
)

// DefaultCategoryCacheTTL applies when Config.CategoryCacheTTL is zero.
const DefaultCategoryCacheTTL = 5 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// AMQP is optional; a broker outage leaves the backend usable.
	var events *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, amqp.Config{
			URL:      config.AMQPURL,
			Exchange: config.AMQPExchange,
			Queue:    config.AMQPQueue,
			Logger:   f.logger,
		})
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config, events)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case RemoteBackend:
		result, err = f.createRemoteBackend(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		if events != nil {
			events.Close()
		}
		return nil, err
	}

	result.Events = events
	if config.Type != SQLiteBackend && events != nil {
		// The SQLite service owns the client otherwise.
		result.Cleanup = joinCleanup(result.Cleanup, events.Close)
	}
	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", events != nil)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config, events *amqp.Client) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var publisher services.Publisher
	if events != nil {
		publisher = events
	}
	svc := services.NewExpenseService(repo, publisher, f.logger)
	adapter := adapters.NewSQLiteAdapter(repo, svc, config.Clock)

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return f.wrap(config, adapter, nil, svc.Close), nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		ExpensesSheet:   config.GoogleSheetName,
		CategoriesSheet: config.GoogleCategoriesSheetName,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
		Clock:           config.Clock,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return f.wrap(config, client, nil, nil), nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	if config.Clock != nil {
		store.WithClock(config.Clock)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return f.wrap(config, store, nil, nil), nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client, err := remote.New(remote.Config{
		BaseURL: config.RemoteBaseURL,
		Timeout: config.RemoteTimeout,
		Logger:  f.logger,
	}, config.Tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote client: %w", err)
	}

	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)
	return f.wrap(config, client, client, nil), nil
}

func (f *DefaultFactory) wrap(config Config, src source.Source, auth Authenticator, cleanup CleanupFunc) *BackendResult {
	ttl := config.CategoryCacheTTL
	if ttl <= 0 {
		ttl = DefaultCategoryCacheTTL
	}
	lru := cache.NewLRUCache[[]string](1, ttl)
	return &BackendResult{
		Source:        source.NewCached(src, lru),
		CategoryCache: lru,
		Auth:          auth,
		Cleanup:       cleanup,
	}
}

func joinCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

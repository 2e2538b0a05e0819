package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/services/ledger"
	"github.com/vsinha/labledger/pkg/config"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/repositories"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
	"github.com/vsinha/labledger/pkg/infrastructure/lock"
	"github.com/vsinha/labledger/pkg/infrastructure/metrics"
	"github.com/vsinha/labledger/pkg/infrastructure/repositories/file"
	"github.com/vsinha/labledger/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/labledger/pkg/infrastructure/repositories/sqlstore"
)

// Runtime is the wired ledger service shared by every subcommand
type Runtime struct {
	Config    *config.Config
	Logger    *zap.Logger
	Service   *ledger.Service
	Collector *metrics.Collector
	Events    *events.InMemoryEventStore
	closers   []func() error
}

// NewRuntime builds the storage backend, the document lock, the event store
// and the ledger service described by cfg.
func NewRuntime(cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	repo, err := rt.openRepository()
	if err != nil {
		rt.Close()
		return nil, err
	}
	locker := rt.openLocker()

	units := services.NewUnitConverter()
	if cfg.Ledger.UnitsFile != "" {
		table, err := config.LoadUnitTable(cfg.Ledger.UnitsFile)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if err := units.Apply(table); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to apply unit table %s: %w", cfg.Ledger.UnitsFile, err)
		}
	}

	rt.Events = events.NewInMemoryEventStore(logger)
	rt.Collector = metrics.NewCollector()
	if err := rt.Collector.Subscribe(rt.Events); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to subscribe metrics collector: %w", err)
	}

	rt.Service = ledger.NewService(repo, locker, units, ledger.Options{
		DocumentKey:      cfg.Storage.DocumentName,
		PostPolicy:       ledger.PostPolicy(cfg.Ledger.PostPolicy),
		DefaultYieldBase: cfg.Ledger.DefaultYieldBase,
		ProductStockUnit: cfg.Ledger.ProductStockUnit,
		WaterLikeNames:   cfg.Ledger.WaterLikeNames,
		Events:           rt.Events,
		Logger:           logger,
	})

	logger.Info("ledger ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("lock", cfg.Lock.Backend),
		zap.String("post_policy", cfg.Ledger.PostPolicy),
	)
	return rt, nil
}

func (rt *Runtime) openRepository() (repositories.DocumentRepository, error) {
	storage := rt.Config.Storage
	switch storage.Backend {
	case "memory":
		return memory.NewDocumentRepository(entities.NewDocument()), nil
	case "sql":
		if storage.Dialect == "sqlite" && !strings.HasPrefix(storage.DSN, ":memory:") && !strings.HasPrefix(storage.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(storage.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := sqlstore.Open(storage.Dialect, storage.DSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			rt.closers = append(rt.closers, sqlDB.Close)
		}
		return sqlstore.NewRepository(db, storage.DocumentName, rt.Logger), nil
	default:
		repo, err := file.NewDocumentRepository(storage.File, file.Options{
			BackupDir:  storage.BackupDir,
			BackupKeep: storage.BackupKeep,
			Logger:     rt.Logger,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func (rt *Runtime) openLocker() repositories.Locker {
	cfg := rt.Config.Lock
	if cfg.Backend != "redis" {
		return lock.NewMutexLocker()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	rt.closers = append(rt.closers, rdb.Close)
	return lock.NewRedisLocker(rdb, cfg.TTL, rt.Logger)
}

// Close drains pending event deliveries and releases connections
func (rt *Runtime) Close() error {
	if rt.Events != nil {
		rt.Events.Wait()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

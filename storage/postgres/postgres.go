package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"freightdispatch/config"
	"freightdispatch/pkg/logger"
	"freightdispatch/storage"
)

type Store struct {
	pool     *pgxpool.Pool
	log      logger.ILogger
	notifier storage.IChangeNotifier
}

// New connects the pool, applies pending migrations and returns the store.
// notifier may be nil when no change feed is wired.
func New(ctx context.Context, cfg config.Config, log logger.ILogger, notifier storage.IChangeNotifier) (storage.IStorage, error) {
	url := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresDB,
	)

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		log.Error("error while parsing Postgres config", logger.Error(err))
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to connect Postgres", logger.Error(err))
		return nil, err
	}

	cwd, _ := os.Getwd()
	mPath := filepath.Join(cwd, "migrations")

	m, err := migrate.New("file://"+mPath, url)
	if err != nil {
		log.Error("migration init error or no migrations found", logger.Error(err))
	} else {
		if err = m.Up(); err != nil {
			if strings.Contains(err.Error(), "no change") {
				log.Info("no migrations to apply")
			} else {
				log.Error("migration up error", logger.Error(err))
				return nil, err
			}
		}
	}

	log.Info("Postgres connected")

	return &Store{
		pool:     pool,
		log:      log,
		notifier: notifier,
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Load() storage.ILoadStorage   { return NewLoadRepo(s.pool, s.log, s.notifier) }
func (s *Store) Event() storage.IEventStorage { return NewEventRepo(s.pool, s.log) }
func (s *Store) Fleet() storage.IFleetStorage { return NewFleetRepo(s.pool, s.log) }

// Пакет database — хранилище журналов Tier2 в PostgreSQL: пул pgxpool,
// миграции audit_log / queue_operations / file_views (golang-migrate)
// и проверка готовности для /health/ready.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouponesailor/tier2/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Имя приложения в pg_stat_activity.
const applicationName = "tier2-api"

// Таблицы, которые создают встроенные миграции.
var managedTables = []string{"audit_log", "queue_operations", "file_views"}

// poolConfig строит конфигурацию пула из параметров T2_DB_*.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolCfg, nil
}

// Connect создаёт пул подключений к PostgreSQL и проверяет его ping-ом.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With(slog.String("component", "database"))

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL %s:%d/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", cfg.DBMaxConns),
		slog.Int("min_conns", cfg.DBMinConns),
	)

	return pool, nil
}

// Migrate применяет встроенные SQL-миграции журналов Tier2.
// База в состоянии dirty (прерванная миграция) — ошибка: нужна ручная правка.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	logger = logger.With(slog.String("component", "database"))

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL("pgx5"))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	before, _, _ := m.Version()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("ошибка чтения версии миграций: %w", err)
	}
	if dirty {
		return fmt.Errorf("схема журналов в состоянии dirty на версии %d", version)
	}

	logger.Info("Миграции применены",
		slog.Uint64("from_version", uint64(before)),
		slog.Uint64("version", uint64(version)),
		slog.Any("tables", managedTables),
	)

	return nil
}

// pinger — то, что нужно проверке готовности от пула.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker — проверка готовности PostgreSQL для /health/ready.
type ReadinessChecker struct {
	db      pinger
	stat    func() *pgxpool.Stat
	timeout time.Duration
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL с таймаутом 3 секунды.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{db: pool, stat: pool.Stat, timeout: 3 * time.Second}
}

// CheckReady проверяет подключение ping-ом. В сообщении — занятость пула.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	if c.stat == nil {
		return "ok", "подключение активно"
	}
	st := c.stat()
	return "ok", fmt.Sprintf("подключение активно, соединений занято %d из %d", st.AcquiredConns(), st.MaxConns())
}

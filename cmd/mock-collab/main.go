// main.go — точка входа mock-сервера коллаборации.
// Данные живут в памяти процесса и сбрасываются при перезапуске.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"log/slog"
	"os"
	"time"

	"github.com/grouponesailor/tier2/internal/config"
	"github.com/grouponesailor/tier2/internal/mockapi"
	"github.com/grouponesailor/tier2/internal/mockserver"
	"github.com/grouponesailor/tier2/internal/server"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (MC_*)
	cfg, err := config.LoadMock()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg.Log, "mock-collab")
	slog.SetDefault(logger)
	logger.Info("Mock-сервер коллаборации запускается",
		slog.Int("port", cfg.Port),
	)

	// 3. Исходные данные
	seed, err := mockserver.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Error("Ошибка загрузки исходных данных", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Источник содержимого файлов: MinIO или локальный каталог
	var source mockserver.ContentSource
	if cfg.MinIOEnabled() {
		source, err = mockserver.NewMinIOSource(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			logger.Error("Ошибка создания клиента MinIO", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		source = mockserver.NewDirSource(cfg.ContentDir, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	objects, err := source.List(ctx)
	cancel()
	if err != nil {
		logger.Error("Ошибка чтения содержимого файлов",
			slog.String("source", source.String()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Содержимое файлов загружено",
		slog.String("source", source.String()),
		slog.Int("objects", len(objects)),
	)

	// 5. Хранилище
	generated := mockserver.GenerateFiles(objects, mockserver.GeneratorSeed, time.Now().UTC())
	store := mockserver.NewStore(seed, generated, logger)

	// 6. Ключ подписи JWT
	logger.Info("Генерация RSA ключевой пары", slog.Int("key_size", cfg.KeySize))
	privateKey, err := rsa.GenerateKey(rand.Reader, cfg.KeySize)
	if err != nil {
		logger.Error("Ошибка генерации RSA ключа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens, err := mockapi.NewTokenIssuer(privateKey, cfg.JWTIssuer, logger)
	if err != nil {
		logger.Error("Ошибка инициализации выпуска токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. HTTP-сервер (блокирующий вызов с graceful shutdown)
	opts := server.DefaultOptions(cfg.Port)
	opts.ShutdownTimeout = cfg.ShutdownTimeout
	srv := server.New(opts, mockapi.New(store, tokens, logger).Routes(), logger)

	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Mock-сервер коллаборации остановлен")
}

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig — параметры логирования, общие для обоих бинарников.
type LogConfig struct {
	// Уровень логирования (debug, info, warn, error)
	Level slog.Level
	// Формат логов (json, text)
	Format string
	// Файл для дублирования логов с ротацией (опционально)
	File string
	// Максимальный размер файла в мегабайтах до ротации
	FileMaxSizeMB int
	// Сколько дней хранить ротированные файлы
	FileMaxAgeDays int
	// Сколько ротированных файлов хранить
	FileMaxBackups int
}

// loadLogConfig читает <prefix>_LOG_* переменные окружения.
func loadLogConfig(prefix string) (LogConfig, error) {
	var (
		lc  LogConfig
		err error
	)

	key := prefix + "_LOG_LEVEL"
	lc.Level, err = parseLogLevel(getEnvDefault(key, "info"))
	if err != nil {
		return lc, fmt.Errorf("%s: %w", key, err)
	}

	key = prefix + "_LOG_FORMAT"
	lc.Format = getEnvDefault(key, "json")
	if lc.Format != "json" && lc.Format != "text" {
		return lc, fmt.Errorf("%s: недопустимое значение %q, допустимые: json, text", key, lc.Format)
	}

	lc.File = getEnvDefault(prefix+"_LOG_FILE", "")

	key = prefix + "_LOG_FILE_MAX_SIZE_MB"
	lc.FileMaxSizeMB, err = getEnvInt(key, 100)
	if err != nil {
		return lc, fmt.Errorf("%s: %w", key, err)
	}
	key = prefix + "_LOG_FILE_MAX_AGE_DAYS"
	lc.FileMaxAgeDays, err = getEnvInt(key, 7)
	if err != nil {
		return lc, fmt.Errorf("%s: %w", key, err)
	}
	key = prefix + "_LOG_FILE_MAX_BACKUPS"
	lc.FileMaxBackups, err = getEnvInt(key, 5)
	if err != nil {
		return lc, fmt.Errorf("%s: %w", key, err)
	}

	return lc, nil
}

// Ключи атрибутов, значения которых не попадают в логи.
var redactedKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"authorization": true,
	"secret":        true,
}

const redactedValue = "***"

// SetupLogger настраивает глобальный slog-логгер.
// Если задан файл, логи пишутся одновременно в stdout и в файл с ротацией.
// Каждая запись содержит service и version бинарника.
func SetupLogger(lc LogConfig, service string) *slog.Logger {
	return setupLogger(lc, service, os.Stdout)
}

func setupLogger(lc LogConfig, service string, stdout io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       lc.Level,
		ReplaceAttr: redactAttr,
	}

	var out io.Writer = stdout
	if lc.File != "" {
		out = io.MultiWriter(stdout, &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.FileMaxSizeMB,
			MaxAge:     lc.FileMaxAgeDays,
			MaxBackups: lc.FileMaxBackups,
			Compress:   true,
			LocalTime:  true,
		})
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler).With(
		slog.String("service", service),
		slog.String("version", Version),
	)
	slog.SetDefault(logger)
	return logger
}

// redactAttr скрывает значения секретов: пароль БД, JWT, ключи MinIO.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

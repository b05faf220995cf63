package config

import (
	"fmt"
	"time"
)

// MockConfig содержит параметры mock-сервера коллаборации.
type MockConfig struct {
	// --- Сервер ---

	Port int
	Log  LogConfig

	// --- Данные ---

	// YAML-файл с начальными данными; пустое значение — встроенный набор
	SeedFile string
	// Каталог с *.txt файлами, из которых генерируются документы
	ContentDir string

	// --- MinIO (альтернативный источник содержимого) ---

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// --- Выпуск токенов ---

	// Issuer выпускаемых JWT
	JWTIssuer string
	// Размер RSA-ключа в битах
	KeySize int

	ShutdownTimeout time.Duration
}

// MinIOEnabled сообщает, нужно ли читать содержимое из MinIO.
func (c *MockConfig) MinIOEnabled() bool {
	return c.MinIOEndpoint != ""
}

// LoadMock загружает конфигурацию mock-сервера из переменных окружения
// с префиксом MC_.
func LoadMock() (*MockConfig, error) {
	cfg := &MockConfig{}
	var err error

	cfg.Port, err = getEnvInt("MC_PORT", 7001)
	if err != nil {
		return nil, fmt.Errorf("MC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.Log, err = loadLogConfig("MC")
	if err != nil {
		return nil, err
	}

	cfg.SeedFile = getEnvDefault("MC_SEED_FILE", "")
	cfg.ContentDir = getEnvDefault("MC_CONTENT_DIR", "mockupdata")

	cfg.MinIOEndpoint = getEnvDefault("MC_MINIO_ENDPOINT", "")
	if cfg.MinIOEnabled() {
		cfg.MinIOAccessKey, err = getEnvRequired("MC_MINIO_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		cfg.MinIOSecretKey, err = getEnvRequired("MC_MINIO_SECRET_KEY")
		if err != nil {
			return nil, err
		}
		cfg.MinIOBucket, err = getEnvRequired("MC_MINIO_BUCKET")
		if err != nil {
			return nil, err
		}
	}
	cfg.MinIOUseSSL, err = getEnvBool("MC_MINIO_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("MC_MINIO_USE_SSL: %w", err)
	}

	cfg.JWTIssuer = getEnvDefault("MC_JWT_ISSUER", "mock-collab")

	cfg.KeySize, err = getEnvInt("MC_KEY_SIZE", 2048)
	if err != nil {
		return nil, fmt.Errorf("MC_KEY_SIZE: %w", err)
	}
	if cfg.KeySize != 2048 && cfg.KeySize != 3072 && cfg.KeySize != 4096 {
		return nil, fmt.Errorf("MC_KEY_SIZE: недопустимое значение %d, допустимые: 2048, 3072, 4096", cfg.KeySize)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("MC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

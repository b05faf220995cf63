// Пакет collabclient — HTTP-клиент сервера коллаборации.
// Поддерживает TLS с кастомным CA (T2_COLLAB_CA_CERT_PATH).
// Ошибки соединения оборачивают ErrUnavailable, ответы со статусом
// не из диапазона 2xx возвращаются как *StatusError.
package collabclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
)

// ErrUnavailable — сервер коллаборации недоступен (ошибка соединения или таймаут).
var ErrUnavailable = errors.New("сервер коллаборации недоступен")

// StatusError — сервер коллаборации ответил статусом не из диапазона 2xx.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("сервер коллаборации вернул статус %d на %s %s: %s",
		e.StatusCode, e.Method, e.Path, strings.TrimSpace(string(e.Body)))
}

// Message возвращает поле message из тела ответа, если оно есть.
func (e *StatusError) Message() string {
	return gjson.GetBytes(e.Body, "message").String()
}

// IsNotFound сообщает, что сервер коллаборации ответил 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsBadRequest сообщает, что сервер коллаборации ответил 400.
func IsBadRequest(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "t2_collab_requests_total",
		Help: "Количество запросов к серверу коллаборации",
	},
	[]string{"method", "operation", "status"},
)

// Client — HTTP-клиент сервера коллаборации.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата сервера коллаборации: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат сервера коллаборации добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "collab_client")),
	}, nil
}

// BaseURL возвращает базовый URL сервера коллаборации.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("файл %s не содержит PEM-сертификатов", caCertPath)
	}

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// do выполняет запрос и возвращает статус и тело ответа.
// Статус не проверяется; ошибка возвращается только при сбое соединения.
func (c *Client) do(ctx context.Context, operation, method, path string, in any) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("сериализация запроса %s: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("создание запроса %s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, operation, "error").Inc()
		c.logger.Warn("Сервер коллаборации недоступен",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(method, operation, "error").Inc()
		return 0, nil, fmt.Errorf("%w: чтение ответа %s: %v", ErrUnavailable, operation, err)
	}

	requestsTotal.WithLabelValues(method, operation, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("Запрос к серверу коллаборации",
		slog.String("operation", operation),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return resp.StatusCode, data, nil
}

// call выполняет запрос и возвращает тело успешного ответа.
func (c *Client) call(ctx context.Context, operation, method, path string, in any) ([]byte, error) {
	status, data, err := c.do(ctx, operation, method, path, in)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{Method: method, Path: path, StatusCode: status, Body: data}
	}
	return data, nil
}

// callJSON выполняет запрос и декодирует успешный ответ в out.
func (c *Client) callJSON(ctx context.Context, operation, method, path string, in, out any) error {
	data, err := c.call(ctx, operation, method, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("декодирование ответа %s: %w", operation, err)
	}
	return nil
}

// Health проверяет доступность сервера коллаборации (GET /health).
func (c *Client) Health(ctx context.Context) error {
	_, err := c.call(ctx, "health", http.MethodGet, "/health", nil)
	return err
}

// CheckReady — проверка готовности для /health/ready с таймаутом 3 секунды.
func (c *Client) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.Health(ctx); err != nil {
		return "fail", fmt.Sprintf("сервер коллаборации недоступен: %v", err)
	}
	return "ok", "сервер коллаборации отвечает"
}

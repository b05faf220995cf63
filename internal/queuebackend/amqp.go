package queuebackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// Заголовки сообщений, из которых восстанавливаются поля QueueMessage.
const (
	headerStatus     = "x-status"
	headerRetryCount = "x-retry-count"
	headerError      = "x-error-message"
	headerPriority   = "x-priority"
	headerDeath      = "x-death"
)

// AMQPBackend работает с очередями RabbitMQ напрямую.
// Количество сообщений берётся из QueueDeclarePassive, предпросмотр и
// поиск выполняются через basic.get без подтверждения с возвратом
// сообщений в очередь (nack + requeue).
type AMQPBackend struct {
	url        string
	queues     []string
	errorQueue string
	scanLimit  int
	logger     *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewAMQPBackend создаёт бэкенд. Соединение устанавливается лениво
// и восстанавливается после разрыва.
func NewAMQPBackend(url string, queues []string, errorQueue string, scanLimit int, logger *slog.Logger) *AMQPBackend {
	return &AMQPBackend{
		url:        url,
		queues:     queues,
		errorQueue: errorQueue,
		scanLimit:  scanLimit,
		logger:     logger.With(slog.String("component", "queue_backend_amqp")),
	}
}

// Name возвращает имя бэкенда.
func (b *AMQPBackend) Name() string { return "amqp" }

// Close закрывает соединение с брокером.
func (b *AMQPBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// channel открывает новый канал. QueueDeclarePassive закрывает канал
// при ошибке, поэтому каждая операция использует свой канал.
func (b *AMQPBackend) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			return nil, fmt.Errorf("подключение к RabbitMQ: %w", err)
		}
		b.conn = conn
		b.logger.Info("Подключение к RabbitMQ установлено")
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("открытие канала RabbitMQ: %w", err)
	}
	return ch, nil
}

// resolveName сопоставляет имя очереди со списком настроенных без учёта регистра.
func (b *AMQPBackend) resolveName(name string) string {
	for _, q := range b.queues {
		if strings.EqualFold(q, name) {
			return q
		}
	}
	return name
}

// inspect возвращает счётчики очереди через пассивное объявление.
func (b *AMQPBackend) inspect(name string) (amqp.Queue, error) {
	ch, err := b.channel()
	if err != nil {
		return amqp.Queue{}, err
	}
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(name, false, false, false, false, nil)
	if err != nil {
		var amqpErr *amqp.Error
		if errors.As(err, &amqpErr) && amqpErr.Code == amqp.NotFound {
			return amqp.Queue{}, fmt.Errorf("%w: %s", ErrQueueNotFound, name)
		}
		return amqp.Queue{}, fmt.Errorf("проверка очереди %s: %w", name, err)
	}
	return q, nil
}

// Queues возвращает состояние настроенных очередей.
// Отсутствующая в брокере очередь отдаётся со статусом Down.
func (b *AMQPBackend) Queues(ctx context.Context) ([]model.QueueInfo, error) {
	now := time.Now().UTC()
	result := make([]model.QueueInfo, 0, len(b.queues))

	for _, name := range b.queues {
		q, err := b.inspect(name)
		if errors.Is(err, ErrQueueNotFound) {
			msg := fmt.Sprintf("Queue %s is not available", name)
			result = append(result, model.QueueInfo{
				Name:          name,
				Status:        model.QueueDown,
				IsAlertActive: true,
				AlertMessage:  &msg,
				LastChecked:   now,
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, model.NewQueueInfo(name, q.Messages, q.Consumers, now))
	}
	return result, nil
}

// Queue возвращает состояние одной очереди.
func (b *AMQPBackend) Queue(ctx context.Context, name string) (*model.QueueInfo, error) {
	name = b.resolveName(name)
	q, err := b.inspect(name)
	if err != nil {
		return nil, err
	}
	info := model.NewQueueInfo(name, q.Messages, q.Consumers, time.Now().UTC())
	return &info, nil
}

// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
func (b *AMQPBackend) ErrorQueueCount(ctx context.Context) (int, error) {
	q, err := b.inspect(b.errorQueue)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

// peek получает до limit сообщений без подтверждения, вызывает visit для
// каждого и возвращает все сообщения в очередь. visit возвращает false,
// чтобы остановить чтение.
func (b *AMQPBackend) peek(ctx context.Context, name string, limit int, visit func(amqp.Delivery) bool) error {
	if _, err := b.inspect(name); err != nil {
		return err
	}

	ch, err := b.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	var lastTag uint64
	defer func() {
		if lastTag == 0 {
			return
		}
		if err := ch.Nack(lastTag, true, true); err != nil {
			b.logger.Warn("Не удалось вернуть сообщения в очередь",
				slog.String("queue", name),
				slog.String("error", err.Error()),
			)
		}
	}()

	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, ok, err := ch.Get(name, false)
		if err != nil {
			return fmt.Errorf("чтение очереди %s: %w", name, err)
		}
		if !ok {
			return nil
		}
		lastTag = d.DeliveryTag
		if !visit(d) {
			return nil
		}
	}
	return nil
}

// Find просматривает до scanLimit сообщений в поисках элемента.
func (b *AMQPBackend) Find(ctx context.Context, queueName string, itemID uuid.UUID) (*model.QueueMessage, error) {
	name := b.resolveName(queueName)

	var found *model.QueueMessage
	err := b.peek(ctx, name, b.scanLimit, func(d amqp.Delivery) bool {
		id := extractItemID(d.Body)
		if id == nil || *id != itemID {
			return true
		}
		m := b.toQueueMessage(name, d)
		found = &m
		return false
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Preview возвращает первые count сообщений.
func (b *AMQPBackend) Preview(ctx context.Context, queueName string, count int) (*model.MessagePreview, error) {
	name := b.resolveName(queueName)
	q, err := b.inspect(name)
	if err != nil {
		return nil, err
	}

	messages := make([]model.QueueMessage, 0, count)
	err = b.peek(ctx, name, count, func(d amqp.Delivery) bool {
		messages = append(messages, b.toQueueMessage(name, d))
		return true
	})
	if err != nil {
		return nil, err
	}

	return &model.MessagePreview{
		QueueName:     name,
		TotalMessages: q.Messages,
		Messages:      messages,
		RetrievedAt:   time.Now().UTC(),
	}, nil
}

// Transfer переносит сообщения: каждое публикуется в целевую очередь и
// только после этого подтверждается в исходной.
func (b *AMQPBackend) Transfer(ctx context.Context, req model.TransferRequest, actor string) (int, error) {
	src := b.resolveName(req.SourceQueueName)
	dst := b.resolveName(req.DestinationQueueName)

	for _, name := range []string{src, dst} {
		if _, err := b.inspect(name); err != nil {
			if errors.Is(err, ErrQueueNotFound) {
				return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			return 0, err
		}
	}

	limit := req.MessageCount
	if limit <= 0 || limit > b.scanLimit {
		limit = b.scanLimit
	}

	ch, err := b.channel()
	if err != nil {
		return 0, err
	}
	defer ch.Close()

	moved := 0
	for moved < limit {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		d, ok, err := ch.Get(src, false)
		if err != nil {
			return moved, fmt.Errorf("чтение очереди %s: %w", src, err)
		}
		if !ok {
			break
		}

		headers := amqp.Table{}
		for k, v := range d.Headers {
			headers[k] = v
		}
		headers["x-transferred-by"] = actor
		headers["x-transferred-from"] = src

		err = ch.PublishWithContext(ctx, "", dst, false, false, amqp.Publishing{
			Headers:       headers,
			ContentType:   d.ContentType,
			DeliveryMode:  amqp.Persistent,
			Priority:      d.Priority,
			CorrelationId: d.CorrelationId,
			MessageId:     d.MessageId,
			Timestamp:     d.Timestamp,
			Body:          d.Body,
		})
		if err != nil {
			if nackErr := d.Nack(false, true); nackErr != nil {
				b.logger.Warn("Не удалось вернуть сообщение в очередь",
					slog.String("queue", src),
					slog.String("error", nackErr.Error()),
				)
			}
			return moved, fmt.Errorf("публикация в очередь %s: %w", dst, err)
		}
		if err := d.Ack(false); err != nil {
			return moved, fmt.Errorf("подтверждение сообщения в очереди %s: %w", src, err)
		}
		moved++
	}

	b.logger.Info("Сообщения перенесены",
		slog.String("source", src),
		slog.String("destination", dst),
		slog.Int("count", moved),
		slog.String("actor", actor),
	)
	return moved, nil
}

// CheckReady — проверка доступности брокера для /health/ready.
func (b *AMQPBackend) CheckReady() (status string, message string) {
	ch, err := b.channel()
	if err != nil {
		return "fail", fmt.Sprintf("RabbitMQ недоступен: %v", err)
	}
	ch.Close()
	return "ok", "RabbitMQ доступен"
}

// toQueueMessage строит QueueMessage из доставки RabbitMQ.
func (b *AMQPBackend) toQueueMessage(queueName string, d amqp.Delivery) model.QueueMessage {
	m := model.QueueMessage{
		ID:          messageUUID(d.MessageId, d.Body),
		QueueName:   queueName,
		MessageID:   d.MessageId,
		MessageBody: string(d.Body),
		Headers:     map[string]any(d.Headers),
		ReceivedAt:  d.Timestamp.UTC(),
		Status:      model.MessagePending,
		Priority:    priorityFromAMQP(d.Priority),
		ItemID:      extractItemID(d.Body),
		RetryCount:  retryCount(d.Headers),
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now().UTC()
	}
	if strings.EqualFold(queueName, b.errorQueue) {
		m.Status = model.MessageFailed
	}
	if s, ok := d.Headers[headerStatus].(string); ok {
		m.Status = model.ParseMessageStatus(s)
	}
	if p, ok := d.Headers[headerPriority].(string); ok {
		m.Priority = model.ParseMessagePriority(p)
	}
	if e, ok := d.Headers[headerError].(string); ok && e != "" {
		m.ErrorMessage = &e
	}
	if d.CorrelationId != "" {
		c := d.CorrelationId
		m.CorrelationID = &c
	}
	return m
}

// messageUUID возвращает message-id, если это UUID, иначе детерминированный
// UUID на основе message-id или тела.
func messageUUID(messageID string, body []byte) uuid.UUID {
	if id, err := uuid.Parse(messageID); err == nil {
		return id
	}
	if messageID != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(messageID))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, body)
}

// priorityFromAMQP переводит приоритет 0..9 в MessagePriority.
func priorityFromAMQP(p uint8) model.MessagePriority {
	switch {
	case p >= 8:
		return model.PriorityCritical
	case p >= 5:
		return model.PriorityHigh
	default:
		return model.PriorityNormal
	}
}

// retryCount читает число повторов из x-retry-count или из x-death.
func retryCount(h amqp.Table) int {
	if n, ok := toInt(h[headerRetryCount]); ok {
		return n
	}
	deaths, ok := h[headerDeath].([]any)
	if !ok {
		return 0
	}
	total := 0
	for _, d := range deaths {
		if t, ok := d.(amqp.Table); ok {
			if n, ok := toInt(t["count"]); ok {
				total += n
			}
		}
	}
	return total
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	default:
		return 0, false
	}
}

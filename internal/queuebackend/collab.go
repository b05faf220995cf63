package queuebackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

// maxTransferBatch — сколько сообщений переносится, если messageCount не задан.
const maxTransferBatch = 1000

// CollabBackend работает с очередями через HTTP API сервера коллаборации.
type CollabBackend struct {
	client *collabclient.Client
	logger *slog.Logger
}

// NewCollabBackend создаёт бэкенд поверх клиента сервера коллаборации.
func NewCollabBackend(client *collabclient.Client, logger *slog.Logger) *CollabBackend {
	return &CollabBackend{
		client: client,
		logger: logger.With(slog.String("component", "queue_backend_collab")),
	}
}

// Name возвращает имя бэкенда.
func (b *CollabBackend) Name() string { return "collab" }

// Queues возвращает состояние очередей.
func (b *CollabBackend) Queues(ctx context.Context) ([]model.QueueInfo, error) {
	list, err := b.client.Queues(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.QueueInfo, 0, len(list.Queues))
	for _, q := range list.Queues {
		checked := q.LastChecked
		if checked.IsZero() {
			checked = time.Now().UTC()
		}
		result = append(result, model.NewQueueInfo(q.Name, q.MessageCount, q.ConsumerCount, checked))
	}
	return result, nil
}

// Queue возвращает состояние одной очереди. Имя сравнивается без учёта регистра.
func (b *CollabBackend) Queue(ctx context.Context, name string) (*model.QueueInfo, error) {
	queues, err := b.Queues(ctx)
	if err != nil {
		return nil, err
	}
	for i := range queues {
		if strings.EqualFold(queues[i].Name, name) {
			return &queues[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, name)
}

// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
func (b *CollabBackend) ErrorQueueCount(ctx context.Context) (int, error) {
	return b.client.ErrorQueueCount(ctx)
}

// Find ищет сообщение элемента в очереди.
func (b *CollabBackend) Find(ctx context.Context, queueName string, itemID uuid.UUID) (*model.QueueMessage, error) {
	msg, err := b.client.FindInQueue(ctx, queueName, itemID)
	if err != nil {
		return nil, mapQueueError(err, queueName)
	}
	if msg == nil {
		return nil, nil
	}
	qm := msg.ToQueueMessage(queueName)
	return &qm, nil
}

// Preview возвращает первые count сообщений очереди.
func (b *CollabBackend) Preview(ctx context.Context, queueName string, count int) (*model.MessagePreview, error) {
	p, err := b.client.Preview(ctx, queueName, count)
	if err != nil {
		return nil, mapQueueError(err, queueName)
	}

	name := p.QueueName
	if name == "" {
		name = queueName
	}
	messages := make([]model.QueueMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		messages = append(messages, m.ToQueueMessage(name))
	}
	retrieved := p.Timestamp
	if retrieved.IsZero() {
		retrieved = time.Now().UTC()
	}

	return &model.MessagePreview{
		QueueName:     name,
		TotalMessages: p.TotalMessages,
		Messages:      messages,
		RetrievedAt:   retrieved,
	}, nil
}

// Transfer переносит первые messageCount сообщений: идентификаторы
// берутся из предпросмотра исходной очереди. Возвращает число сообщений,
// которое сервер коллаборации сообщил как перенесённые.
func (b *CollabBackend) Transfer(ctx context.Context, req model.TransferRequest, actor string) (int, error) {
	count := req.MessageCount
	if count <= 0 || count > maxTransferBatch {
		count = maxTransferBatch
	}

	preview, err := b.client.Preview(ctx, req.SourceQueueName, count)
	if err != nil {
		return 0, mapQueueError(err, req.SourceQueueName)
	}

	ids := make([]uuid.UUID, 0, len(preview.Messages))
	for _, m := range preview.Messages {
		ids = append(ids, m.ID)
	}

	res, err := b.client.Transfer(ctx, model.CollabTransferRequest{
		SourceQueue:   req.SourceQueueName,
		TargetQueue:   req.DestinationQueueName,
		MessageIDs:    ids,
		AdminUser:     actor,
		Justification: req.Justification,
	})
	if err != nil {
		if collabclient.IsBadRequest(err) || collabclient.IsNotFound(err) {
			return 0, transferFailure(err)
		}
		return 0, err
	}
	if !res.Success {
		return 0, fmt.Errorf("%w: %s", ErrTransferFailed, res.Message)
	}

	if res.MessageCount < len(ids) {
		b.logger.Warn("Перенесена часть сообщений",
			slog.String("source", req.SourceQueueName),
			slog.Int("requested", len(ids)),
			slog.Int("moved", res.MessageCount),
		)
	}
	b.logger.Info("Сообщения перенесены",
		slog.String("source", req.SourceQueueName),
		slog.String("destination", req.DestinationQueueName),
		slog.Int("count", res.MessageCount),
		slog.String("actor", actor),
	)
	return res.MessageCount, nil
}

// mapQueueError переводит 404 сервера коллаборации в ErrQueueNotFound.
func mapQueueError(err error, queueName string) error {
	if collabclient.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrQueueNotFound, queueName)
	}
	return err
}

func transferFailure(err error) error {
	var se *collabclient.StatusError
	if errors.As(err, &se) && se.Message() != "" {
		return fmt.Errorf("%w: %s", ErrTransferFailed, se.Message())
	}
	return fmt.Errorf("%w: %v", ErrTransferFailed, err)
}

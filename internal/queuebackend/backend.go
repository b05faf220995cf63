// Пакет queuebackend — доступ к очередям сообщений.
// Две реализации: collab (HTTP API сервера коллаборации) и amqp (RabbitMQ).
package queuebackend

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// ErrorQueueName — имя очереди ошибок в ответах Tier2 API.
const ErrorQueueName = "error-queue"

var (
	// ErrQueueNotFound — очередь не существует.
	ErrQueueNotFound = errors.New("очередь не найдена")
	// ErrTransferFailed — перенос сообщений отклонён бэкендом.
	ErrTransferFailed = errors.New("перенос сообщений не выполнен")
)

// Backend — источник данных об очередях.
type Backend interface {
	// Name возвращает имя бэкенда (collab, amqp).
	Name() string
	// Queues возвращает состояние всех известных очередей.
	Queues(ctx context.Context) ([]model.QueueInfo, error)
	// Queue возвращает состояние одной очереди (ErrQueueNotFound, если её нет).
	Queue(ctx context.Context, name string) (*model.QueueInfo, error)
	// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
	ErrorQueueCount(ctx context.Context) (int, error)
	// Find ищет сообщение, относящееся к элементу. nil без ошибки — не найдено.
	Find(ctx context.Context, queueName string, itemID uuid.UUID) (*model.QueueMessage, error)
	// Preview возвращает первые count сообщений без их извлечения.
	Preview(ctx context.Context, queueName string, count int) (*model.MessagePreview, error)
	// Transfer переносит до req.MessageCount сообщений и возвращает их число.
	Transfer(ctx context.Context, req model.TransferRequest, actor string) (int, error)
}

// itemIDPaths — поля тела сообщения, в которых ищется идентификатор элемента.
var itemIDPaths = []string{"ItemId", "itemId", "FileId", "fileId", "item.id"}

// extractItemID извлекает идентификатор элемента из JSON-тела сообщения.
func extractItemID(body []byte) *uuid.UUID {
	for _, p := range itemIDPaths {
		v := gjson.GetBytes(body, p)
		if !v.Exists() {
			continue
		}
		if id, err := uuid.Parse(strings.TrimSpace(v.String())); err == nil {
			return &id
		}
	}
	return nil
}

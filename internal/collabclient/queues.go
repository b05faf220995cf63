package collabclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// Queues возвращает список очередей.
func (c *Client) Queues(ctx context.Context) (*model.CollabQueueList, error) {
	var out model.CollabQueueList
	if err := c.callJSON(ctx, "list_queues", http.MethodGet, "/api/queues", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
func (c *Client) ErrorQueueCount(ctx context.Context) (int, error) {
	data, err := c.call(ctx, "error_queue_count", http.MethodGet, "/api/queues/error/count", nil)
	if err != nil {
		return 0, err
	}
	count := gjson.GetBytes(data, "messageCount")
	if !count.Exists() {
		return 0, fmt.Errorf("ответ error/count не содержит messageCount")
	}
	return int(count.Int()), nil
}

// FindInQueue ищет сообщение по идентификатору элемента.
// Если элемент не найден, возвращает nil без ошибки.
func (c *Client) FindInQueue(ctx context.Context, queueName string, itemID uuid.UUID) (*model.CollabQueueMessage, error) {
	path := "/api/queues/" + url.PathEscape(queueName) + "/search/" + itemID.String()
	data, err := c.call(ctx, "find_in_queue", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if !gjson.GetBytes(data, "found").Bool() {
		return nil, nil
	}

	// При found=true поле message содержит объект сообщения.
	raw := gjson.GetBytes(data, "message")
	if !raw.IsObject() {
		return nil, fmt.Errorf("ответ поиска в очереди %s не содержит сообщения", queueName)
	}
	var msg model.CollabQueueMessage
	if err := json.Unmarshal([]byte(raw.Raw), &msg); err != nil {
		return nil, fmt.Errorf("декодирование сообщения очереди: %w", err)
	}
	return &msg, nil
}

// Preview возвращает первые count сообщений очереди.
func (c *Client) Preview(ctx context.Context, queueName string, count int) (*model.CollabPreview, error) {
	path := "/api/queues/" + url.PathEscape(queueName) + "/messages/preview?count=" + strconv.Itoa(count)

	var out model.CollabPreview
	if err := c.callJSON(ctx, "preview_messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer переносит сообщения с указанными идентификаторами.
func (c *Client) Transfer(ctx context.Context, req model.CollabTransferRequest) (*model.CollabTransferResult, error) {
	var out model.CollabTransferResult
	if err := c.callJSON(ctx, "transfer_messages", http.MethodPost, "/api/queues/transfer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

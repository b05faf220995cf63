package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueInfo — состояние очереди в ответе Tier2 API.
type QueueInfo struct {
	Name              string      `json:"name"`
	MessageCount      int         `json:"messageCount"`
	ConsumerCount     int         `json:"consumerCount"`
	DeadLetterCount   int         `json:"deadLetterCount"`
	MessagesPerSecond float64     `json:"messagesPerSecond"`
	Status            QueueStatus `json:"status"`
	IsAlertActive     bool        `json:"isAlertActive"`
	AlertMessage      *string     `json:"alertMessage"`
	LastChecked       time.Time   `json:"lastChecked"`
}

// NewQueueInfo строит QueueInfo, вычисляя статус и предупреждение
// по количеству сообщений.
func NewQueueInfo(name string, messageCount, consumerCount int, lastChecked time.Time) QueueInfo {
	info := QueueInfo{
		Name:          name,
		MessageCount:  messageCount,
		ConsumerCount: consumerCount,
		Status:        QueueStatusFor(messageCount),
		LastChecked:   lastChecked,
	}
	if info.Status != QueueHealthy {
		msg := fmt.Sprintf("Queue %s has %d messages", name, messageCount)
		info.IsAlertActive = true
		info.AlertMessage = &msg
	}
	return info
}

// QueueMessage — сообщение очереди в ответе Tier2 API.
type QueueMessage struct {
	ID            uuid.UUID       `json:"id"`
	QueueName     string          `json:"queueName"`
	MessageID     string          `json:"messageId"`
	MessageBody   string          `json:"messageBody"`
	Headers       map[string]any  `json:"headers"`
	ReceivedAt    time.Time       `json:"receivedAt"`
	Status        MessageStatus   `json:"status"`
	RetryCount    int             `json:"retryCount"`
	LastRetryAt   *time.Time      `json:"lastRetryAt"`
	ErrorMessage  *string         `json:"errorMessage"`
	Priority      MessagePriority `json:"priority"`
	CorrelationID *string         `json:"correlationId"`
	ItemID        *uuid.UUID      `json:"itemId"`
}

// MessagePreview — первые сообщения очереди.
type MessagePreview struct {
	QueueName     string         `json:"queueName"`
	TotalMessages int            `json:"totalMessages"`
	Messages      []QueueMessage `json:"messages"`
	RetrievedAt   time.Time      `json:"retrievedAt"`
}

// ErrorQueueCount — количество сообщений в очереди ошибок.
type ErrorQueueCount struct {
	QueueName    string    `json:"queueName"`
	MessageCount int       `json:"messageCount"`
	Timestamp    time.Time `json:"timestamp"`
	HasMessages  bool      `json:"hasMessages"`
}

// QueueSearchResult — результат поиска элемента в очереди.
type QueueSearchResult struct {
	Found     bool          `json:"found"`
	Message   string        `json:"message"`
	QueueName string        `json:"queueName,omitempty"`
	ItemID    *uuid.UUID    `json:"itemId,omitempty"`
	QueueInfo *QueueInfo    `json:"queueInfo,omitempty"`
	Item      *QueueMessage `json:"item,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TransferRequest — запрос переноса сообщений между очередями.
type TransferRequest struct {
	SourceQueueName      string `json:"sourceQueueName"`
	DestinationQueueName string `json:"destinationQueueName"`
	MessageCount         int    `json:"messageCount"`
	Justification        string `json:"justification"`
}

// TransferResult — результат переноса сообщений.
type TransferResult struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	SourceQueue      string    `json:"sourceQueue,omitempty"`
	DestinationQueue string    `json:"destinationQueue,omitempty"`
	MessageCount     int       `json:"messageCount"`
	Timestamp        time.Time `json:"timestamp"`
}

// PurgeRequest — запрос очистки очереди.
type PurgeRequest struct {
	Justification string `json:"justification"`
	ConfirmPurge  bool   `json:"confirmPurge"`
}

// QueueOperation — запись журнала операций над очередями.
type QueueOperation struct {
	ID            int64              `json:"id"`
	QueueName     string             `json:"queueName"`
	Operation     string             `json:"operation"`
	PerformedBy   string             `json:"performedBy"`
	OperationTime time.Time          `json:"operationTime"`
	OperationType QueueOperationType `json:"operationType"`
	MessageCount  int                `json:"messageCount"`
	Parameters    *string            `json:"parameters"`
	Status        OperationStatus    `json:"status"`
	ErrorMessage  *string            `json:"errorMessage"`
	Justification *string            `json:"justification"`
}

// QueueOperationFilter — параметры выборки журнала операций.
type QueueOperationFilter struct {
	QueueName string
	Limit     int
	Offset    int
}

// --- Формат очередей сервера коллаборации ---

// CollabQueue — очередь в списке сервера коллаборации.
type CollabQueue struct {
	Name          string    `json:"name"`
	MessageCount  int       `json:"messageCount"`
	ConsumerCount int       `json:"consumerCount"`
	IsHealthy     bool      `json:"isHealthy"`
	LastChecked   time.Time `json:"lastChecked"`
	Status        string    `json:"status"`
}

// CollabQueueList — список очередей сервера коллаборации.
type CollabQueueList struct {
	Count     int           `json:"count"`
	Timestamp time.Time     `json:"timestamp"`
	Queues    []CollabQueue `json:"queues"`
}

// CollabQueueCount — количество сообщений в очереди.
type CollabQueueCount struct {
	QueueName    string    `json:"queueName"`
	MessageCount int       `json:"messageCount"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
}

// CollabQueueMessage — сообщение очереди сервера коллаборации.
// Статус и приоритет передаются строками.
type CollabQueueMessage struct {
	ID            uuid.UUID      `json:"id"`
	MessageID     string         `json:"messageId"`
	MessageBody   string         `json:"messageBody"`
	Status        string         `json:"status"`
	RetryCount    int            `json:"retryCount"`
	ReceivedAt    time.Time      `json:"receivedAt"`
	LastRetryAt   *time.Time     `json:"lastRetryAt,omitempty"`
	ErrorMessage  *string        `json:"errorMessage"`
	Priority      string         `json:"priority"`
	CorrelationID *string        `json:"correlationId"`
	ItemID        *uuid.UUID     `json:"itemId,omitempty"`
	Headers       map[string]any `json:"headers,omitempty"`
	HasError      bool           `json:"hasError"`
}

// ToQueueMessage переводит сообщение сервера коллаборации в формат Tier2 API.
func (m CollabQueueMessage) ToQueueMessage(queueName string) QueueMessage {
	return QueueMessage{
		ID:            m.ID,
		QueueName:     queueName,
		MessageID:     m.MessageID,
		MessageBody:   m.MessageBody,
		Headers:       m.Headers,
		ReceivedAt:    m.ReceivedAt,
		Status:        ParseMessageStatus(m.Status),
		RetryCount:    m.RetryCount,
		LastRetryAt:   m.LastRetryAt,
		ErrorMessage:  m.ErrorMessage,
		Priority:      ParseMessagePriority(m.Priority),
		CorrelationID: m.CorrelationID,
		ItemID:        m.ItemID,
	}
}

// CollabPreview — предпросмотр сообщений сервера коллаборации.
type CollabPreview struct {
	QueueName      string               `json:"queueName"`
	TotalMessages  int                  `json:"totalMessages"`
	RequestedCount int                  `json:"requestedCount"`
	Timestamp      time.Time            `json:"timestamp"`
	Messages       []CollabQueueMessage `json:"messages"`
}

// CollabTransferRequest — запрос переноса сообщений по идентификаторам.
type CollabTransferRequest struct {
	SourceQueue   string      `json:"sourceQueue"`
	TargetQueue   string      `json:"targetQueue"`
	MessageIDs    []uuid.UUID `json:"messageIds"`
	AdminUser     string      `json:"adminUser"`
	Justification string      `json:"justification"`
}

// CollabTransferResult — ответ сервера коллаборации на перенос.
type CollabTransferResult struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	SourceQueue   string    `json:"sourceQueue"`
	TargetQueue   string    `json:"targetQueue"`
	MessageCount  int       `json:"messageCount"`
	TransferredBy string    `json:"transferredBy"`
	Timestamp     time.Time `json:"timestamp"`
}

// QueueOperationsPage — страница журнала операций над очередями.
type QueueOperationsPage struct {
	Operations []QueueOperation `json:"operations"`
	TotalCount int              `json:"totalCount"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

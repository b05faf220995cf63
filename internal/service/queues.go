package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/queuebackend"
)

// Ограничения предпросмотра и журнала операций.
const (
	DefaultPreviewCount  = 10
	MaxPreviewCount      = 100
	DefaultJournalLimit  = 50
	MaxJournalLimit      = 500
	purgeRejectedMessage = "Purge operation was rejected for security reasons"
)

// QueueJournal — журнал операций над очередями.
// Record сохраняет операцию вместе с записью аудита атомарно.
type QueueJournal interface {
	Record(ctx context.Context, op *model.QueueOperation, audit *model.AuditLog) error
	List(ctx context.Context, f model.QueueOperationFilter) ([]model.QueueOperation, int, error)
}

// QueueService — мониторинг и обслуживание очередей сообщений.
type QueueService struct {
	backend queuebackend.Backend
	journal QueueJournal
	logger  *slog.Logger
}

// NewQueueService создаёт сервис очередей.
func NewQueueService(backend queuebackend.Backend, journal QueueJournal, logger *slog.Logger) *QueueService {
	return &QueueService{
		backend: backend,
		journal: journal,
		logger:  logger.With(slog.String("component", "queues"), slog.String("backend", backend.Name())),
	}
}

// queueError переводит ошибку бэкенда в sentinel-ошибку.
func queueError(err error) error {
	if errors.Is(err, queuebackend.ErrQueueNotFound) {
		return fmt.Errorf("%w: Queue not found", ErrNotFound)
	}
	return upstreamError(err, "")
}

// record пишет операцию в журнал. Сбой журнала не прерывает операцию.
func (s *QueueService) record(ctx context.Context, op *model.QueueOperation, audit *model.AuditLog) {
	if err := s.journal.Record(ctx, op, audit); err != nil {
		auditWriteFailuresTotal.Inc()
		s.logger.Warn("Не удалось записать операцию в журнал очередей",
			slog.String("queue", op.QueueName),
			slog.String("operation", op.Operation),
			slog.String("error", err.Error()),
		)
	}
}

func newOperation(caller Caller, queueName string, opType model.QueueOperationType, params any) *model.QueueOperation {
	return &model.QueueOperation{
		QueueName:     queueName,
		Operation:     strings.ToLower(opType.String()),
		PerformedBy:   caller.Actor(),
		OperationTime: time.Now().UTC(),
		OperationType: opType,
		Parameters:    marshalValues(params),
		Status:        model.OperationCompleted,
	}
}

// Queues возвращает состояние всех очередей.
func (s *QueueService) Queues(ctx context.Context) ([]model.QueueInfo, error) {
	queues, err := s.backend.Queues(ctx)
	if err != nil {
		return nil, queueError(err)
	}
	return queues, nil
}

// ErrorQueueCount возвращает количество сообщений в очереди ошибок.
func (s *QueueService) ErrorQueueCount(ctx context.Context) (*model.ErrorQueueCount, error) {
	n, err := s.backend.ErrorQueueCount(ctx)
	if err != nil {
		return nil, queueError(err)
	}
	return &model.ErrorQueueCount{
		QueueName:    queuebackend.ErrorQueueName,
		MessageCount: n,
		Timestamp:    time.Now().UTC(),
		HasMessages:  n > 0,
	}, nil
}

// Find ищет в очереди сообщение, относящееся к элементу.
func (s *QueueService) Find(ctx context.Context, caller Caller, queueName string, itemID uuid.UUID) (*model.QueueSearchResult, error) {
	info, err := s.backend.Queue(ctx, queueName)
	if err != nil {
		return nil, queueError(err)
	}
	msg, err := s.backend.Find(ctx, queueName, itemID)
	if err != nil {
		return nil, queueError(err)
	}

	op := newOperation(caller, queueName, model.QueueOpSearch, map[string]any{"itemId": itemID})
	now := time.Now().UTC()

	var res *model.QueueSearchResult
	if msg == nil {
		res = &model.QueueSearchResult{
			Found:     false,
			Message:   fmt.Sprintf("Item %s not found in queue %s", itemID, queueName),
			QueueName: queueName,
			ItemID:    &itemID,
			Timestamp: now,
		}
	} else {
		op.MessageCount = 1
		res = &model.QueueSearchResult{
			Found:     true,
			Message:   fmt.Sprintf("Item %s found in queue %s", itemID, queueName),
			QueueInfo: info,
			Item:      msg,
			Timestamp: now,
		}
	}
	s.record(ctx, op, nil)
	return res, nil
}

// Preview возвращает первые сообщения очереди; count ограничен диапазоном 1..100.
func (s *QueueService) Preview(ctx context.Context, caller Caller, queueName string, count int) (*model.MessagePreview, error) {
	switch {
	case count < 1:
		count = 1
	case count > MaxPreviewCount:
		count = MaxPreviewCount
	}

	preview, err := s.backend.Preview(ctx, queueName, count)
	if err != nil {
		return nil, queueError(err)
	}
	if preview.Messages == nil {
		preview.Messages = []model.QueueMessage{}
	}

	op := newOperation(caller, queueName, model.QueueOpPreview, map[string]any{"count": count})
	op.MessageCount = len(preview.Messages)
	s.record(ctx, op, nil)
	return preview, nil
}

// Transfer переносит сообщения между очередями. При отказе бэкенда
// возвращается результат success=false вместе с ErrRejected.
func (s *QueueService) Transfer(ctx context.Context, caller Caller, req model.TransferRequest) (*model.TransferResult, error) {
	req.SourceQueueName = strings.TrimSpace(req.SourceQueueName)
	req.DestinationQueueName = strings.TrimSpace(req.DestinationQueueName)
	req.Justification = strings.TrimSpace(req.Justification)
	switch {
	case req.SourceQueueName == "" || req.DestinationQueueName == "":
		return nil, fmt.Errorf("%w: Source and destination queue names are required", ErrValidation)
	case req.Justification == "":
		return nil, fmt.Errorf("%w: Justification is required", ErrValidation)
	case req.SourceQueueName == req.DestinationQueueName:
		return nil, fmt.Errorf("%w: Source and destination queues must differ", ErrValidation)
	}

	moved, err := s.backend.Transfer(ctx, req, caller.Actor())

	params := map[string]any{
		"destinationQueue": req.DestinationQueueName,
		"requestedCount":   req.MessageCount,
	}
	op := newOperation(caller, req.SourceQueueName, model.QueueOpTransfer, params)
	op.MessageCount = moved
	op.Justification = optional(req.Justification)
	audit := caller.audit(auditEntry{
		Action:     "TransferMessages",
		EntityType: entityQueue,
		EntityID:   req.SourceQueueName,
		EntityName: req.SourceQueueName,
		LogType:    model.AuditQueueOperation,
		Category:   model.CategoryQueueManagement,
		RiskLevel:  model.RiskHigh,
		NewValues: map[string]any{
			"destinationQueue": req.DestinationQueueName,
			"messageCount":     moved,
		},
		Comments: req.Justification,
	})

	if err != nil {
		op.Status = model.OperationFailed
		op.ErrorMessage = optional(err.Error())
		s.record(ctx, op, audit)

		if !errors.Is(err, queuebackend.ErrTransferFailed) && !errors.Is(err, queuebackend.ErrQueueNotFound) {
			return nil, queueError(err)
		}
		s.logger.Warn("Перенос сообщений отклонён",
			slog.String("source", req.SourceQueueName),
			slog.String("destination", req.DestinationQueueName),
			slog.String("error", err.Error()),
		)
		return &model.TransferResult{
			Success:   false,
			Message:   "Message transfer failed: " + err.Error(),
			Timestamp: time.Now().UTC(),
		}, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	s.record(ctx, op, audit)
	s.logger.Info("Сообщения перенесены",
		slog.String("source", req.SourceQueueName),
		slog.String("destination", req.DestinationQueueName),
		slog.Int("count", moved),
		slog.String("actor", caller.Actor()),
	)
	return &model.TransferResult{
		Success:          true,
		Message:          fmt.Sprintf("Transferred %d messages from %s to %s", moved, req.SourceQueueName, req.DestinationQueueName),
		SourceQueue:      req.SourceQueueName,
		DestinationQueue: req.DestinationQueueName,
		MessageCount:     moved,
		Timestamp:        time.Now().UTC(),
	}, nil
}

// Purge обрабатывает запрос очистки очереди. Очистка запрещена политикой:
// запрос журналируется как отменённый и требует проверки.
func (s *QueueService) Purge(ctx context.Context, caller Caller, queueName string, req model.PurgeRequest) (*model.TransferResult, error) {
	justification := strings.TrimSpace(req.Justification)
	if justification == "" {
		return nil, fmt.Errorf("%w: Justification is required", ErrValidation)
	}
	if !req.ConfirmPurge {
		return nil, fmt.Errorf("%w: Purge must be confirmed with confirmPurge=true", ErrValidation)
	}

	op := newOperation(caller, queueName, model.QueueOpPurge, map[string]any{"confirmPurge": true})
	op.Status = model.OperationCancelled
	op.Justification = optional(justification)
	op.ErrorMessage = optional(purgeRejectedMessage)
	audit := caller.audit(auditEntry{
		Action:         "PurgeQueue",
		EntityType:     entityQueue,
		EntityID:       queueName,
		EntityName:     queueName,
		LogType:        model.AuditQueueOperation,
		Category:       model.CategoryQueueManagement,
		RiskLevel:      model.RiskCritical,
		RequiresReview: true,
		NewValues:      map[string]any{"status": model.OperationCancelled.String()},
		Comments:       justification,
	})
	s.record(ctx, op, audit)

	s.logger.Warn("Запрос очистки очереди отклонён",
		slog.String("queue", queueName),
		slog.String("actor", caller.Actor()),
	)
	return &model.TransferResult{
		Success:   false,
		Message:   purgeRejectedMessage,
		Timestamp: time.Now().UTC(),
	}, ErrRejected
}

// Operations возвращает страницу журнала операций, новые первыми.
func (s *QueueService) Operations(ctx context.Context, queueName string, limit, offset int) (*model.QueueOperationsPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultJournalLimit
	case limit > MaxJournalLimit:
		limit = MaxJournalLimit
	}
	if offset < 0 {
		offset = 0
	}

	ops, total, err := s.journal.List(ctx, model.QueueOperationFilter{
		QueueName: queueName,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}
	return &model.QueueOperationsPage{
		Operations: ops,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

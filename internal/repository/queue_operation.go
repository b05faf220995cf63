package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// QueueOperationRepository — журнал операций над очередями (queue_operations).
type QueueOperationRepository interface {
	// Create добавляет операцию; заполняет ID и OperationTime.
	Create(ctx context.Context, op *model.QueueOperation) error
	// List возвращает операции, новые первыми.
	List(ctx context.Context, filter model.QueueOperationFilter) ([]model.QueueOperation, error)
	// Count возвращает количество операций по фильтру.
	Count(ctx context.Context, filter model.QueueOperationFilter) (int, error)
}

type queueOperationRepo struct {
	db DBTX
}

// NewQueueOperationRepository создаёт репозиторий журнала очередей.
func NewQueueOperationRepository(db DBTX) QueueOperationRepository {
	return &queueOperationRepo{db: db}
}

func (r *queueOperationRepo) Create(ctx context.Context, op *model.QueueOperation) error {
	query := `
		INSERT INTO queue_operations (queue_name, operation, performed_by, operation_type,
			message_count, parameters, status, error_message, justification)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, operation_time`

	err := r.db.QueryRow(ctx, query,
		op.QueueName, op.Operation, op.PerformedBy, int(op.OperationType),
		op.MessageCount, op.Parameters, int(op.Status), op.ErrorMessage, op.Justification,
	).Scan(&op.ID, &op.OperationTime)
	if err != nil {
		return fmt.Errorf("ошибка записи операции очереди: %w", err)
	}
	return nil
}

func buildQueueOperationWhere(f model.QueueOperationFilter) *whereBuilder {
	b := &whereBuilder{}
	if f.QueueName != "" {
		b.add("queue_name = $%d", f.QueueName)
	}
	return b
}

func (r *queueOperationRepo) List(ctx context.Context, f model.QueueOperationFilter) ([]model.QueueOperation, error) {
	b := buildQueueOperationWhere(f)
	argNum := b.next()

	query := fmt.Sprintf(`
		SELECT id, queue_name, operation, performed_by, operation_time, operation_type,
			message_count, parameters, status, error_message, justification
		FROM queue_operations
		%s
		ORDER BY operation_time DESC, id DESC
		LIMIT $%d OFFSET $%d`, b.clause(), argNum, argNum+1)

	args := append(b.args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала очередей: %w", err)
	}
	defer rows.Close()

	result := make([]model.QueueOperation, 0)
	for rows.Next() {
		var (
			op             model.QueueOperation
			opType, status int
		)
		if err := rows.Scan(
			&op.ID, &op.QueueName, &op.Operation, &op.PerformedBy, &op.OperationTime, &opType,
			&op.MessageCount, &op.Parameters, &status, &op.ErrorMessage, &op.Justification,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования операции очереди: %w", err)
		}
		op.OperationType = model.QueueOperationType(opType)
		op.Status = model.OperationStatus(status)
		result = append(result, op)
	}
	return result, rows.Err()
}

func (r *queueOperationRepo) Count(ctx context.Context, f model.QueueOperationFilter) (int, error) {
	b := buildQueueOperationWhere(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM queue_operations %s", b.clause())

	var count int
	if err := r.db.QueryRow(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта операций очереди: %w", err)
	}
	return count, nil
}

// QueueJournal записывает операцию над очередью вместе с записью аудита
// в одной транзакции.
type QueueJournal struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewQueueJournal создаёт журнал очередей поверх пула подключений.
func NewQueueJournal(pool *pgxpool.Pool) *QueueJournal {
	return &QueueJournal{pool: pool, tx: NewTxRunner(pool)}
}

// Record сохраняет операцию и (если задана) запись аудита атомарно.
func (j *QueueJournal) Record(ctx context.Context, op *model.QueueOperation, audit *model.AuditLog) error {
	return j.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewQueueOperationRepository(tx).Create(ctx, op); err != nil {
			return err
		}
		if audit == nil {
			return nil
		}
		return NewAuditLogRepository(tx).Create(ctx, audit)
	})
}

// List возвращает страницу журнала и общее количество записей.
func (j *QueueJournal) List(ctx context.Context, f model.QueueOperationFilter) ([]model.QueueOperation, int, error) {
	repo := NewQueueOperationRepository(j.pool)
	ops, err := repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ops, total, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// AuditLogRepository — запись и поиск в таблице audit_log.
type AuditLogRepository interface {
	// Create добавляет запись; заполняет ID и CreatedAt.
	Create(ctx context.Context, entry *model.AuditLog) error
	// Search возвращает страницу записей, новые первыми.
	Search(ctx context.Context, filter model.AuditFilter) ([]model.AuditLog, error)
	// Count возвращает количество записей, подходящих под фильтр.
	Count(ctx context.Context, filter model.AuditFilter) (int, error)
}

type auditLogRepo struct {
	db DBTX
}

// NewAuditLogRepository создаёт репозиторий журнала аудита.
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, e *model.AuditLog) error {
	query := `
		INSERT INTO audit_log (user_name, action, entity_type, entity_id, entity_name,
			log_type, old_values, new_values, ip_address, user_agent, comments,
			category, risk_level, requires_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.UserName, e.Action, e.EntityType, e.EntityID, e.EntityName,
		int(e.LogType), e.OldValues, e.NewValues, e.IPAddress, e.UserAgent, e.Comments,
		int(e.Category), int(e.RiskLevel), e.RequiresReview,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}
	return nil
}

// buildAuditWhere строит WHERE-условие для фильтра аудита.
func buildAuditWhere(f model.AuditFilter) *whereBuilder {
	b := &whereBuilder{}
	if f.UserName != "" {
		b.add("user_name ILIKE $%d", "%"+f.UserName+"%")
	}
	if f.Action != "" {
		b.add("action ILIKE $%d", "%"+f.Action+"%")
	}
	if f.EntityType != "" {
		b.add("entity_type = $%d", f.EntityType)
	}
	if f.LogType != 0 {
		b.add("log_type = $%d", int(f.LogType))
	}
	if f.Category != 0 {
		b.add("category = $%d", int(f.Category))
	}
	if f.MinRiskLevel != 0 {
		b.add("risk_level >= $%d", int(f.MinRiskLevel))
	}
	if f.From != nil {
		b.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		b.add("created_at <= $%d", *f.To)
	}
	if f.RequiresReview != nil {
		b.add("requires_review = $%d", *f.RequiresReview)
	}
	return b
}

func (r *auditLogRepo) Search(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, error) {
	b := buildAuditWhere(f)
	argNum := b.next()

	query := fmt.Sprintf(`
		SELECT id, user_name, action, entity_type, entity_id, entity_name,
			log_type, old_values, new_values, ip_address, user_agent, comments,
			category, risk_level, requires_review, created_at
		FROM audit_log
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, b.clause(), argNum, argNum+1)

	args := append(b.args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска по журналу аудита: %w", err)
	}
	defer rows.Close()

	result := make([]model.AuditLog, 0, f.PageSize)
	for rows.Next() {
		var (
			e                          model.AuditLog
			logType, category, riskLvl int
		)
		if err := rows.Scan(
			&e.ID, &e.UserName, &e.Action, &e.EntityType, &e.EntityID, &e.EntityName,
			&logType, &e.OldValues, &e.NewValues, &e.IPAddress, &e.UserAgent, &e.Comments,
			&category, &riskLvl, &e.RequiresReview, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		e.LogType = model.AuditLogType(logType)
		e.Category = model.AuditCategory(category)
		e.RiskLevel = model.RiskLevel(riskLvl)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *auditLogRepo) Count(ctx context.Context, f model.AuditFilter) (int, error) {
	b := buildAuditWhere(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM audit_log %s", b.clause())

	var count int
	if err := r.db.QueryRow(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей аудита: %w", err)
	}
	return count, nil
}

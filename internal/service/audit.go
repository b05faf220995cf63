package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/repository"
)

// Параметры постраничного поиска по журналу аудита.
const (
	DefaultAuditPageSize = 50
	MaxAuditPageSize     = 500
	// Верхняя граница номера страницы: (page-1)*pageSize должно оставаться
	// корректным OFFSET для PostgreSQL.
	MaxAuditPage = 100000
)

var auditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "t2_audit_write_failures_total",
	Help: "Количество неудачных записей в журнал аудита.",
})

// AuditService — запись и поиск по журналу аудита.
type AuditService struct {
	repo   repository.AuditLogRepository
	logger *slog.Logger
}

// NewAuditService создаёт сервис аудита.
func NewAuditService(repo repository.AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger.With(slog.String("component", "audit")),
	}
}

// Record сохраняет запись аудита. Ошибка записи не прерывает бизнес-операцию:
// она логируется на уровне WARN и учитывается в метрике.
func (s *AuditService) Record(ctx context.Context, entry *model.AuditLog) {
	if err := s.repo.Create(ctx, entry); err != nil {
		auditWriteFailuresTotal.Inc()
		s.logger.Warn("Не удалось записать событие аудита",
			slog.String("action", entry.Action),
			slog.String("user", entry.UserName),
			slog.String("error", err.Error()),
		)
	}
}

// Search возвращает страницу журнала аудита, новые записи первыми.
func (s *AuditService) Search(ctx context.Context, f model.AuditFilter) (*model.AuditPage, error) {
	switch {
	case f.Page < 1:
		f.Page = 1
	case f.Page > MaxAuditPage:
		f.Page = MaxAuditPage
	}
	switch {
	case f.PageSize <= 0:
		f.PageSize = DefaultAuditPageSize
	case f.PageSize > MaxAuditPageSize:
		f.PageSize = MaxAuditPageSize
	}

	logs, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	return &model.AuditPage{
		Logs:       logs,
		TotalCount: total,
		PageNumber: f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}, nil
}

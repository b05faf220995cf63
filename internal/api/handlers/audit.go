package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/grouponesailor/tier2/internal/domain/model"
	"github.com/grouponesailor/tier2/internal/service"
)

// AuditHandler — поиск по журналу аудита.
type AuditHandler struct {
	audit  *service.AuditService
	logger *slog.Logger
}

// NewAuditHandler создаёт обработчик журнала аудита.
func NewAuditHandler(audit *service.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger.With(slog.String("component", "audit_handler")),
	}
}

// SearchAuditLogs — GET /api/audit-logs.
// Перечисления передаются числами: logType, category, minRiskLevel.
func (h *AuditHandler) SearchAuditLogs(w http.ResponseWriter, r *http.Request) {
	var (
		logType, category, minRisk, page, pageSize *int
		from, to                                   *time.Time
		requiresReview                             *bool
	)
	if !queryParam(w, r, "logType", &logType) ||
		!queryParam(w, r, "category", &category) ||
		!queryParam(w, r, "minRiskLevel", &minRisk) ||
		!queryParam(w, r, "page", &page) ||
		!queryParam(w, r, "pageSize", &pageSize) ||
		!queryParam(w, r, "from", &from) ||
		!queryParam(w, r, "to", &to) ||
		!queryParam(w, r, "requiresReview", &requiresReview) {
		return
	}

	q := r.URL.Query()
	filter := model.AuditFilter{
		UserName:       q.Get("userName"),
		Action:         q.Get("action"),
		EntityType:     q.Get("entityType"),
		LogType:        model.AuditLogType(deref(logType)),
		Category:       model.AuditCategory(deref(category)),
		MinRiskLevel:   model.RiskLevel(deref(minRisk)),
		From:           from,
		To:             to,
		RequiresReview: requiresReview,
		Page:           deref(page),
		PageSize:       deref(pageSize),
	}

	out, err := h.audit.Search(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

package model

import "time"

// AuditLog — запись журнала аудита.
// Хранится в таблице audit_log.
type AuditLog struct {
	ID             int64         `json:"id"`
	UserName       string        `json:"userName"`
	Action         string        `json:"action"`
	EntityType     string        `json:"entityType"`
	EntityID       *string       `json:"entityId"`
	EntityName     *string       `json:"entityName"`
	LogType        AuditLogType  `json:"logType"`
	OldValues      *string       `json:"oldValues"`
	NewValues      *string       `json:"newValues"`
	IPAddress      *string       `json:"ipAddress"`
	UserAgent      *string       `json:"userAgent"`
	Comments       *string       `json:"comments"`
	Category       AuditCategory `json:"category"`
	RiskLevel      RiskLevel     `json:"riskLevel"`
	RequiresReview bool          `json:"requiresReview"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// AuditFilter — параметры поиска по журналу аудита.
// Нулевые значения полей не участвуют в фильтрации.
type AuditFilter struct {
	UserName       string
	Action         string
	EntityType     string
	LogType        AuditLogType
	Category       AuditCategory
	MinRiskLevel   RiskLevel
	From           *time.Time
	To             *time.Time
	RequiresReview *bool
	Page           int
	PageSize       int
}

// AuditPage — страница результатов поиска по журналу аудита.
type AuditPage struct {
	Logs       []AuditLog `json:"logs"`
	TotalCount int        `json:"totalCount"`
	PageNumber int        `json:"pageNumber"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

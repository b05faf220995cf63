package service

import (
	"encoding/json"
	"time"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// DefaultActor — имя администратора, когда аутентификация отключена.
const DefaultActor = "admin"

// Caller — инициатор операции: пользователь из JWT и параметры запроса.
type Caller struct {
	UserName  string
	IPAddress string
	UserAgent string
}

// Actor возвращает имя инициатора для журналов.
func (c Caller) Actor() string {
	if c.UserName == "" {
		return DefaultActor
	}
	return c.UserName
}

// auditEntry собирает запись аудита от имени инициатора.
type auditEntry struct {
	Action         string
	EntityType     string
	EntityID       string
	EntityName     string
	LogType        model.AuditLogType
	Category       model.AuditCategory
	RiskLevel      model.RiskLevel
	RequiresReview bool
	OldValues      any
	NewValues      any
	Comments       string
}

func (c Caller) audit(e auditEntry) *model.AuditLog {
	return &model.AuditLog{
		UserName:       c.Actor(),
		Action:         e.Action,
		EntityType:     e.EntityType,
		EntityID:       optional(e.EntityID),
		EntityName:     optional(e.EntityName),
		LogType:        e.LogType,
		OldValues:      marshalValues(e.OldValues),
		NewValues:      marshalValues(e.NewValues),
		IPAddress:      optional(c.IPAddress),
		UserAgent:      optional(c.UserAgent),
		Comments:       optional(e.Comments),
		Category:       e.Category,
		RiskLevel:      e.RiskLevel,
		RequiresReview: e.RequiresReview,
		CreatedAt:      time.Now().UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// marshalValues сериализует значения для полей oldValues/newValues.
func marshalValues(v any) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// Пакет model — доменные модели и форматы обмена Tier2 API и
// сервера коллаборации.
package model

import "strings"

// Перечисления сериализуются в JSON и хранятся в PostgreSQL как целые
// числа. Имена используются в логах и при разборе строковых значений
// сервера коллаборации.

// AuditLogType — тип действия в журнале аудита.
type AuditLogType int

const (
	AuditCreate AuditLogType = iota + 1
	AuditRead
	AuditUpdate
	AuditDelete
	AuditMove
	AuditCopy
	AuditPermissionChange
	AuditClassificationChange
	AuditLock
	AuditUnlock
	AuditVersionRestore
	AuditRecovery
	AuditQueueOperation
)

var auditLogTypeNames = []string{"", "Create", "Read", "Update", "Delete", "Move", "Copy",
	"PermissionChange", "ClassificationChange", "Lock", "Unlock", "VersionRestore",
	"Recovery", "QueueOperation"}

func (t AuditLogType) String() string { return enumName(auditLogTypeNames, int(t)) }

// Valid сообщает, входит ли значение в перечисление.
func (t AuditLogType) Valid() bool { return validEnum(auditLogTypeNames, int(t)) }

// AuditCategory — категория записи аудита.
type AuditCategory int

const (
	CategoryFileOperation AuditCategory = iota + 1
	CategoryPermissionManagement
	CategoryUserManagement
	CategorySecurity
	CategorySystemConfiguration
	CategoryDataRecovery
	CategoryQueueManagement
	CategoryCompliance
)

var auditCategoryNames = []string{"", "FileOperation", "PermissionManagement",
	"UserManagement", "Security", "SystemConfiguration", "DataRecovery",
	"QueueManagement", "Compliance"}

func (c AuditCategory) String() string { return enumName(auditCategoryNames, int(c)) }

// Valid сообщает, входит ли значение в перечисление.
func (c AuditCategory) Valid() bool { return validEnum(auditCategoryNames, int(c)) }

// RiskLevel — уровень риска действия.
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskLevelNames = []string{"", "Low", "Medium", "High", "Critical"}

func (r RiskLevel) String() string { return enumName(riskLevelNames, int(r)) }

// Valid сообщает, входит ли значение в перечисление.
func (r RiskLevel) Valid() bool { return validEnum(riskLevelNames, int(r)) }

// QueueOperationType — тип операции над очередью.
type QueueOperationType int

const (
	QueueOpView QueueOperationType = iota + 1
	QueueOpCount
	QueueOpPreview
	QueueOpTransfer
	QueueOpPurge
	QueueOpSearch
)

var queueOperationTypeNames = []string{"", "View", "Count", "Preview", "Transfer", "Purge", "Search"}

func (t QueueOperationType) String() string { return enumName(queueOperationTypeNames, int(t)) }

// OperationStatus — статус операции в журнале очередей.
type OperationStatus int

const (
	OperationPending OperationStatus = iota + 1
	OperationInProgress
	OperationCompleted
	OperationFailed
	OperationCancelled
	OperationRequiresApproval
)

var operationStatusNames = []string{"", "Pending", "InProgress", "Completed", "Failed",
	"Cancelled", "RequiresApproval"}

func (s OperationStatus) String() string { return enumName(operationStatusNames, int(s)) }

// MessageStatus — состояние сообщения в очереди.
type MessageStatus int

const (
	MessagePending MessageStatus = iota + 1
	MessageProcessing
	MessageCompleted
	MessageFailed
	MessageDeadLetter
	MessageRetrying
)

var messageStatusNames = []string{"", "Pending", "Processing", "Completed", "Failed",
	"DeadLetter", "Retrying"}

func (s MessageStatus) String() string { return enumName(messageStatusNames, int(s)) }

// ParseMessageStatus разбирает строковый статус сервера коллаборации.
// Неизвестные значения трактуются как Pending.
func ParseMessageStatus(s string) MessageStatus {
	if v := parseEnum(messageStatusNames, s); v > 0 {
		return MessageStatus(v)
	}
	return MessagePending
}

// MessagePriority — приоритет сообщения.
type MessagePriority int

const (
	PriorityLow MessagePriority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var messagePriorityNames = []string{"", "Low", "Normal", "High", "Critical"}

func (p MessagePriority) String() string { return enumName(messagePriorityNames, int(p)) }

// ParseMessagePriority разбирает строковый приоритет. По умолчанию Normal.
func ParseMessagePriority(s string) MessagePriority {
	if v := parseEnum(messagePriorityNames, s); v > 0 {
		return MessagePriority(v)
	}
	return PriorityNormal
}

// QueueStatus — состояние очереди.
type QueueStatus int

const (
	QueueHealthy QueueStatus = iota + 1
	QueueWarning
	QueueCritical
	QueueDown
	QueueMaintenance
)

var queueStatusNames = []string{"", "Healthy", "Warning", "Critical", "Down", "Maintenance"}

func (s QueueStatus) String() string { return enumName(queueStatusNames, int(s)) }

// QueueStatusFor вычисляет состояние очереди по количеству сообщений:
// больше 100 — Critical, больше 50 — Warning.
func QueueStatusFor(messageCount int) QueueStatus {
	switch {
	case messageCount > 100:
		return QueueCritical
	case messageCount > 50:
		return QueueWarning
	default:
		return QueueHealthy
	}
}

func enumName(names []string, v int) string {
	if v <= 0 || v >= len(names) {
		return "Unknown"
	}
	return names[v]
}

func validEnum(names []string, v int) bool {
	return v > 0 && v < len(names)
}

func parseEnum(names []string, s string) int {
	for i := 1; i < len(names); i++ {
		if strings.EqualFold(names[i], s) {
			return i
		}
	}
	return 0
}

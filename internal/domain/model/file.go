package model

import (
	"time"

	"github.com/google/uuid"
)

// Типы элементов хранилища.
const (
	ItemTypeFile   = "File"
	ItemTypeFolder = "Folder"
)

// Уровни классификации.
const (
	ClassificationPublic       = "Public"
	ClassificationInternal     = "Internal"
	ClassificationConfidential = "Confidential"
	ClassificationSecret       = "Secret"
)

// Типы субъектов прав доступа.
const (
	PrincipalUser  = "User"
	PrincipalGroup = "Group"
)

// Permission — право субъекта (пользователя или группы AD) на файл или папку.
type Permission struct {
	PrincipalID   string     `json:"principalId" yaml:"principalId"`
	PrincipalType string     `json:"principalType" yaml:"principalType"`
	AccessLevel   string     `json:"accessLevel" yaml:"accessLevel"`
	IsInherited   bool       `json:"isInherited" yaml:"isInherited"`
	InheritedFrom *string    `json:"inheritedFrom" yaml:"inheritedFrom"`
	ExpiryDate    *time.Time `json:"expiryDate" yaml:"expiryDate"`
}

// FileVersion — версия файла.
type FileVersion struct {
	VersionID     uuid.UUID `json:"versionId"`
	VersionNumber int       `json:"versionNumber"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	Size          int64     `json:"size"`
	Comments      string    `json:"comments"`
	IsCurrent     bool      `json:"isCurrent"`
}

// ClassificationChange — запись истории смены классификации.
type ClassificationChange struct {
	ID            uuid.UUID `json:"id"`
	PreviousLevel string    `json:"previousLevel"`
	NewLevel      string    `json:"newLevel"`
	ChangedBy     string    `json:"changedBy"`
	ChangedAt     time.Time `json:"changedAt"`
	Justification string    `json:"justification"`
}

// FileLock — заблокированный файл.
type FileLock struct {
	FileID        uuid.UUID  `json:"fileId"`
	FileName      string     `json:"fileName"`
	FilePath      string     `json:"filePath"`
	LockedBy      *string    `json:"lockedBy"`
	LockTimestamp *time.Time `json:"lockTimestamp"`
	Size          int64      `json:"size"`
}

// LockedFiles — список заблокированных файлов.
type LockedFiles struct {
	Count int        `json:"count"`
	Files []FileLock `json:"files"`
}

// LockStatus — состояние блокировки одного файла.
type LockStatus struct {
	FileID        uuid.UUID  `json:"fileId"`
	FileName      string     `json:"fileName"`
	IsLocked      bool       `json:"isLocked"`
	LockedBy      *string    `json:"lockedBy"`
	LockTimestamp *time.Time `json:"lockTimestamp"`
	CanUnlock     bool       `json:"canUnlock"`
}

// FileVersions — версии файла, новые первыми.
type FileVersions struct {
	FileID   uuid.UUID     `json:"fileId"`
	FileName string        `json:"fileName"`
	Versions []FileVersion `json:"versions"`
}

// FilePermissions — права на файл.
type FilePermissions struct {
	FileID      uuid.UUID    `json:"fileId"`
	FileName    string       `json:"fileName"`
	FilePath    string       `json:"filePath"`
	Permissions []Permission `json:"permissions"`
}

// ClassificationHistory — история классификации файла, новые первыми.
type ClassificationHistory struct {
	FileID                uuid.UUID              `json:"fileId"`
	FileName              string                 `json:"fileName"`
	CurrentClassification string                 `json:"currentClassification"`
	History               []ClassificationChange `json:"history"`
}

// --- Конверты запрос/ответ (reqId + ex) ---

// RequestHeader — заголовок конверта запроса.
type RequestHeader struct {
	ReqID           string `json:"reqId"`
	CallingSystemID int    `json:"callingSystemId"`
}

// ResponseHeader — заголовок конверта ответа.
type ResponseHeader struct {
	ReqID string `json:"reqId"`
}

// UnlockRequest — запрос разблокировки файла.
type UnlockRequest struct {
	RequestHeader RequestHeader `json:"requestHeader"`
	RequestBody   struct {
		ID string `json:"id"`
	} `json:"requestBody"`
}

// UnlockResponse — результат разблокировки. Ex заполнен при отказе.
type UnlockResponse struct {
	ID             string         `json:"id"`
	Locked         bool           `json:"locked"`
	Signature      string         `json:"signature"`
	Etag           string         `json:"etag"`
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Ex             *string        `json:"ex"`
}

// RestoreItemBody — тело запроса восстановления файла или каталога.
type RestoreItemBody struct {
	ID          string  `json:"id"`
	Override    bool    `json:"override"`
	NewParentID *string `json:"newParentId"`
}

// RestoreItemRequest — запрос восстановления файла или каталога.
type RestoreItemRequest struct {
	RequestHeader RequestHeader   `json:"requestHeader"`
	RequestBody   RestoreItemBody `json:"requestBody"`
}

// RestoreItemResponse — результат восстановления. Ex заполнен при ошибке.
type RestoreItemResponse struct {
	ID             string         `json:"id"`
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Ex             *string        `json:"ex"`
}

// --- Восстановление версии ---

// RestoreVersionRequest — запрос к серверу коллаборации на восстановление версии.
type RestoreVersionRequest struct {
	VersionNumber int     `json:"versionNumber"`
	AdminUser     string  `json:"adminUser"`
	Comments      *string `json:"comments"`
}

// RestoreVersionResult — ответ на восстановление версии.
type RestoreVersionResult struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	FileID            uuid.UUID `json:"fileId"`
	RestoredToVersion int       `json:"restoredToVersion"`
	RestoredBy        string    `json:"restoredBy,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// --- Корзина ---

// DeletedItem — удалённый файл или папка.
type DeletedItem struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Type       string     `json:"type"`
	Size       *int64     `json:"size"`
	DeletedBy  *string    `json:"deletedBy"`
	DeletedAt  *time.Time `json:"deletedAt"`
	CanRestore bool       `json:"canRestore"`
}

// DeletedItems — содержимое корзины, новые первыми.
type DeletedItems struct {
	Count int           `json:"count"`
	Items []DeletedItem `json:"items"`
}

// RecoverItemRequest — запрос восстановления удалённого элемента.
type RecoverItemRequest struct {
	AdminUser     string  `json:"adminUser"`
	Justification *string `json:"justification"`
}

// RecoverItemResult — результат восстановления удалённого элемента.
type RecoverItemResult struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ItemID     uuid.UUID `json:"itemId"`
	ItemType   string    `json:"itemType"`
	RestoredBy string    `json:"restoredBy"`
	Timestamp  time.Time `json:"timestamp"`
}

// --- Просмотры ---

// FileView — статистика просмотров файла одним пользователем.
type FileView struct {
	UserID        string    `json:"userId"`
	ViewCounter   int       `json:"viewCounter"`
	FirstViewDate time.Time `json:"firstViewDate"`
	LastViewDate  time.Time `json:"lastViewDate"`
}

// FileViews — ответ со статистикой просмотров.
type FileViews struct {
	ItemID         string         `json:"itemId"`
	Views          []FileView     `json:"views"`
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Ex             *string        `json:"ex"`
}

// FileVersionRestoreRequest — запрос Tier2 API на восстановление версии файла.
type FileVersionRestoreRequest struct {
	FileID        string `json:"fileId"`
	VersionID     int    `json:"versionId"`
	Justification string `json:"justification"`
	CreateBackup  bool   `json:"createBackup"`
}

// RecoverDeletedRequest — тело запроса восстановления из корзины.
type RecoverDeletedRequest struct {
	Justification *string `json:"justification"`
}

// RecordViewRequest — тело запроса фиксации просмотра.
type RecordViewRequest struct {
	UserID string `json:"userId"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// User — пользователь Active Directory.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email"`
	Department  *string    `json:"department"`
	Title       *string    `json:"title"`
	IsEnabled   bool       `json:"isEnabled"`
	LastLogon   *time.Time `json:"lastLogon"`
	AdGroups    []string   `json:"adGroups,omitempty"`
}

// UserList — ответ поиска пользователей сервера коллаборации.
type UserList struct {
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// UserSummary — краткая карточка пользователя Tier2 API.
type UserSummary struct {
	ID                 string     `json:"id"`
	UserName           string     `json:"userName"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"displayName"`
	Department         *string    `json:"department"`
	Title              *string    `json:"title"`
	IsEnabled          bool       `json:"isEnabled"`
	LastLogon          *time.Time `json:"lastLogon"`
	ActiveSessionCount int        `json:"activeSessionCount"`
	GroupCount         int        `json:"groupCount"`
}

// Summary строит краткую карточку пользователя.
func (u User) Summary() UserSummary {
	display := u.DisplayName
	if display == "" {
		display = u.Username
	}
	return UserSummary{
		ID:          u.ID,
		UserName:    u.Username,
		Email:       u.Email,
		DisplayName: display,
		Department:  u.Department,
		Title:       u.Title,
		IsEnabled:   u.IsEnabled,
		LastLogon:   u.LastLogon,
		GroupCount:  len(u.AdGroups),
	}
}

// ADGroup — группа Active Directory.
type ADGroup struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Members     []string `json:"members,omitempty"`
}

// UserADGroups — группы пользователя по данным сервера коллаборации.
type UserADGroups struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Department  *string   `json:"department"`
	Groups      []ADGroup `json:"groups"`
}

// UserGroupNames — имена групп пользователя в ответе Tier2 API.
type UserGroupNames struct {
	Username  string    `json:"username"`
	Groups    []string  `json:"groups"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// EffectivePermission — право, учтённое при проверке доступа.
type EffectivePermission struct {
	PrincipalID   string `json:"principalId"`
	PrincipalType string `json:"principalType"`
	AccessLevel   string `json:"accessLevel"`
	IsInherited   bool   `json:"isInherited"`
	Source        string `json:"source"`
}

// UserPermissions — результат проверки доступа пользователя к элементу.
type UserPermissions struct {
	Username       string                `json:"username"`
	DisplayName    string                `json:"displayName"`
	ItemID         uuid.UUID             `json:"itemId"`
	RequiredAccess string                `json:"requiredAccess"`
	HasAccess      bool                  `json:"hasAccess"`
	DenialReason   *string               `json:"denialReason"`
	Permissions    []EffectivePermission `json:"permissions"`
}

// UserAccessResult — ответ Tier2 API на проверку доступа пользователя.
type UserAccessResult struct {
	UserName            string    `json:"userName"`
	DisplayName         string    `json:"displayName"`
	ItemID              uuid.UUID `json:"itemId"`
	RequestedPermission string    `json:"requestedPermission"`
	HasAccess           bool      `json:"hasAccess"`
	DenialReason        *string   `json:"denialReason"`
}

// ADSyncStatus — состояние синхронизации с Active Directory.
type ADSyncStatus struct {
	LastSyncTime  time.Time `json:"lastSyncTime"`
	IsInProgress  bool      `json:"isInProgress"`
	Status        string    `json:"status"`
	TotalUsers    int       `json:"totalUsers"`
	TotalGroups   int       `json:"totalGroups"`
	UsersAdded    int       `json:"usersAdded"`
	UsersUpdated  int       `json:"usersUpdated"`
	GroupsAdded   int       `json:"groupsAdded"`
	GroupsUpdated int       `json:"groupsUpdated"`
	ErrorCount    int       `json:"errorCount"`
	SyncDuration  string    `json:"syncDuration"`
}

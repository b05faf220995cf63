package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/access"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

// Причина отказа, когда пользователя нет в каталоге.
const denialUserNotFound = "User not found"

// UserDirectory — каталог пользователей сервера коллаборации.
type UserDirectory interface {
	SearchUsers(ctx context.Context, search string) ([]model.User, error)
	User(ctx context.Context, username string) (*model.User, error)
	UserGroupNames(ctx context.Context, username string) ([]string, error)
	UserPermissions(ctx context.Context, username string, itemID uuid.UUID, requiredAccess string) (*model.UserPermissions, error)
}

// UserService — пользователи AD и их группы.
// Профили и списки групп кэшируются: LRU экземпляра, затем Redis (если задан).
// Одновременные промахи по одному ключу выполняют один запрос к серверу коллаборации.
type UserService struct {
	dir    UserDirectory
	users  *Cache[model.User]
	groups *Cache[[]string]
	shared *RedisCache
	flight singleflight.Group
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей. shared может быть nil.
func NewUserService(dir UserDirectory, cacheSize int, cacheTTL time.Duration, shared *RedisCache, logger *slog.Logger) *UserService {
	return &UserService{
		dir:    dir,
		users:  NewCache[model.User]("users", cacheSize, cacheTTL),
		groups: NewCache[[]string]("user_groups", cacheSize, cacheTTL),
		shared: shared,
		logger: logger.With(slog.String("component", "users")),
	}
}

// Предел общего запроса к каталогу, выполняемого для всех ожидающих.
const sharedLookupTimeout = 30 * time.Second

// cached возвращает значение из local, затем из shared, затем вызывает load.
// Общий запрос выполняется вне контекста первого вызывающего: его отмена
// не должна завершать ошибкой остальных, ожидающих тот же ключ.
func cached[V any](ctx context.Context, s *UserService, local *Cache[V], key string, load func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := local.Get(key); ok {
		return v, nil
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		var v V
		if s.shared != nil {
			found, err := s.shared.Get(ctx, key, &v)
			if err != nil {
				s.logger.Warn("Ошибка чтения из Redis", slog.String("key", key), slog.String("error", err.Error()))
			}
			if found {
				local.Set(key, v)
				return v, nil
			}
		}

		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		local.Set(key, v)
		if s.shared != nil {
			if err := s.shared.Set(ctx, key, v); err != nil {
				s.logger.Warn("Ошибка записи в Redis", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// SearchUsers ищет пользователей по подстроке.
func (s *UserService) SearchUsers(ctx context.Context, search string) ([]model.UserSummary, error) {
	users, err := s.dir.SearchUsers(ctx, search)
	if err != nil {
		return nil, upstreamError(err, "")
	}
	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// ActiveUsers возвращает включённых пользователей.
func (s *UserService) ActiveUsers(ctx context.Context) ([]model.UserSummary, error) {
	users, err := s.dir.SearchUsers(ctx, "")
	if err != nil {
		return nil, upstreamError(err, "")
	}
	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		if u.IsEnabled {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

// GetUser возвращает профиль пользователя.
func (s *UserService) GetUser(ctx context.Context, username string) (*model.User, error) {
	u, err := cached(ctx, s, s.users, "user:"+username, func(ctx context.Context) (model.User, error) {
		got, err := s.dir.User(ctx, username)
		if err != nil {
			return model.User{}, upstreamError(err, "User not found")
		}
		return *got, nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ADGroups возвращает имена групп AD пользователя.
func (s *UserService) ADGroups(ctx context.Context, username string) (*model.UserGroupNames, error) {
	groups, err := cached(ctx, s, s.groups, "groups:"+username, func(ctx context.Context) ([]string, error) {
		names, err := s.dir.UserGroupNames(ctx, username)
		if err != nil {
			return nil, upstreamError(err, "User not found")
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []string{}
	}
	return &model.UserGroupNames{
		Username:  username,
		Groups:    groups,
		Count:     len(groups),
		Timestamp: time.Now().UTC(),
	}, nil
}

// CheckAccess проверяет, есть ли у пользователя требуемый доступ к элементу.
func (s *UserService) CheckAccess(ctx context.Context, username string, itemID uuid.UUID, requiredAccess string) (*model.UserAccessResult, error) {
	required, err := requiredLevel(requiredAccess)
	if err != nil {
		return nil, err
	}

	perm, err := s.dir.UserPermissions(ctx, username, itemID, required)
	if collabclient.IsNotFound(err) {
		perm = unknownUserPermissions(username, itemID, required)
	} else if err != nil {
		return nil, upstreamError(err, "")
	}

	display := perm.DisplayName
	if display == "" {
		display = perm.Username
	}
	return &model.UserAccessResult{
		UserName:            perm.Username,
		DisplayName:         display,
		ItemID:              itemID,
		RequestedPermission: required,
		HasAccess:           perm.HasAccess,
		DenialReason:        perm.DenialReason,
	}, nil
}

// unknownUserPermissions — отказ для пользователя, которого нет в каталоге.
func unknownUserPermissions(username string, itemID uuid.UUID, required string) *model.UserPermissions {
	reason := denialUserNotFound
	return &model.UserPermissions{
		Username:       username,
		ItemID:         itemID,
		RequiredAccess: required,
		HasAccess:      false,
		DenialReason:   &reason,
		Permissions:    []model.EffectivePermission{},
	}
}

// ADSyncStatus возвращает состояние синхронизации с AD.
// Синхронизация выполняется вне Tier2, значения фиксированные.
func (s *UserService) ADSyncStatus() model.ADSyncStatus {
	return model.ADSyncStatus{
		LastSyncTime:  time.Now().UTC().Add(-time.Hour),
		IsInProgress:  false,
		Status:        "completed successfully",
		TotalUsers:    150,
		TotalGroups:   25,
		UsersAdded:    2,
		UsersUpdated:  8,
		GroupsAdded:   0,
		GroupsUpdated: 1,
		ErrorCount:    0,
		SyncDuration:  (5 * time.Minute).String(),
	}
}

// requiredLevel нормализует уровень доступа; пустое значение — Read.
func requiredLevel(level string) (string, error) {
	if level == "" {
		return access.Read, nil
	}
	normalized, ok := access.Normalize(level)
	if !ok {
		return "", fmt.Errorf("%w: unknown access level %q", ErrValidation, level)
	}
	return normalized, nil
}

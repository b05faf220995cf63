package collabclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// SearchUsers ищет пользователей по подстроке (GET /api/users?search=).
func (c *Client) SearchUsers(ctx context.Context, search string) ([]model.User, error) {
	path := "/api/users"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}

	var out model.UserList
	if err := c.callJSON(ctx, "search_users", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []model.User{}
	}
	return out.Users, nil
}

// User возвращает пользователя по имени.
func (c *Client) User(ctx context.Context, username string) (*model.User, error) {
	var out model.User
	path := "/api/users/" + url.PathEscape(username)
	if err := c.callJSON(ctx, "get_user", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserGroupNames возвращает имена групп AD пользователя (поле groups[].name).
func (c *Client) UserGroupNames(ctx context.Context, username string) ([]string, error) {
	path := "/api/users/" + url.PathEscape(username) + "/ad-groups"
	data, err := c.call(ctx, "user_groups", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, n := range gjson.GetBytes(data, "groups.#.name").Array() {
		if n.String() != "" {
			names = append(names, n.String())
		}
	}
	return names, nil
}

// UserPermissions проверяет доступ пользователя к элементу.
func (c *Client) UserPermissions(ctx context.Context, username string, itemID uuid.UUID, requiredAccess string) (*model.UserPermissions, error) {
	path := "/api/users/" + url.PathEscape(username) + "/permissions/" + itemID.String() +
		"?requiredAccess=" + url.QueryEscape(requiredAccess)

	var out model.UserPermissions
	if err := c.callJSON(ctx, "user_permissions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

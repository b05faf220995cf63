package collabclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// ItemPermissions запрашивает права на элемент в системе Midur.
func (c *Client) ItemPermissions(ctx context.Context, itemID int, reqID string, callingSystemID int) (*model.ItemPermissionsResponse, error) {
	q := url.Values{}
	q.Set("reqId", reqID)
	q.Set("callingSystemId", strconv.Itoa(callingSystemID))
	path := "/api/midur/getItemPermissions/" + strconv.Itoa(itemID) + "?" + q.Encode()

	var out model.ItemPermissionsResponse
	if err := c.callJSON(ctx, "item_permissions", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StorageID возвращает физическое расположение элемента.
func (c *Client) StorageID(ctx context.Context, id string) (*model.StorageIDResponse, error) {
	path := "/api/maintenance/getStorageId/id/" + url.PathEscape(id)

	var out model.StorageIDResponse
	if err := c.callJSON(ctx, "storage_id", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

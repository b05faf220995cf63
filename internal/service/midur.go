package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/grouponesailor/tier2/internal/collabclient"
	"github.com/grouponesailor/tier2/internal/domain/model"
)

// MidurClient — права Midur и расположение элементов в хранилище.
type MidurClient interface {
	ItemPermissions(ctx context.Context, itemID int, reqID string, callingSystemID int) (*model.ItemPermissionsResponse, error)
	StorageID(ctx context.Context, id string) (*model.StorageIDResponse, error)
}

// MidurService — запросы внешних систем в конвертном формате.
// Ошибки сервера коллаборации возвращаются в поле ex, а не статусом.
type MidurService struct {
	client MidurClient
	logger *slog.Logger
}

// NewMidurService создаёт сервис Midur.
func NewMidurService(client MidurClient, logger *slog.Logger) *MidurService {
	return &MidurService{client: client, logger: logger.With(slog.String("component", "midur"))}
}

// ItemPermissions возвращает права на элемент. itemID должен быть целым числом.
func (s *MidurService) ItemPermissions(ctx context.Context, itemID, reqID string, callingSystemID int) (*model.ItemPermissionsResponse, error) {
	id, err := strconv.Atoi(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: itemId must be an integer", ErrValidation)
	}

	out, err := s.client.ItemPermissions(ctx, id, reqID, callingSystemID)
	if err != nil {
		s.logger.Warn("Ошибка запроса прав Midur",
			slog.Int("item_id", id),
			slog.String("error", err.Error()),
		)
		return &model.ItemPermissionsResponse{
			ResponseBody: model.ItemPermissionsBody{
				ItemID:          id,
				DirectAdItems:   []model.AdItem{},
				InheriteAdItems: []model.AdItem{},
			},
			ResponseHeader: model.ResponseHeader{ReqID: reqID},
			Ex:             optional(envelopeError(err)),
		}, nil
	}
	return out, nil
}

// StorageID возвращает физическое расположение элемента.
// reqId в заголовке ответа совпадает с id элемента на обоих путях.
func (s *MidurService) StorageID(ctx context.Context, id string) *model.StorageIDResponse {
	out, err := s.client.StorageID(ctx, id)
	if err != nil {
		s.logger.Warn("Ошибка запроса расположения элемента",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return &model.StorageIDResponse{
			ResponseBody:   model.StorageIDBody{ItemID: id},
			ResponseHeader: model.ResponseHeader{ReqID: id},
			Ex:             optional(envelopeError(err)),
		}
	}
	if out.ResponseHeader.ReqID == "" {
		out.ResponseHeader.ReqID = id
	}
	return out
}

// envelopeError формирует текст ex по ошибке сервера коллаборации.
func envelopeError(err error) string {
	if errors.Is(err, collabclient.ErrUnavailable) {
		return exUpstreamDown
	}
	var se *collabclient.StatusError
	if errors.As(err, &se) && se.Message() != "" {
		return se.Message()
	}
	return err.Error()
}

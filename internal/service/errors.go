// Пакет service — бизнес-логика Tier2 API.
package service

import (
	"errors"
	"fmt"

	"github.com/grouponesailor/tier2/internal/collabclient"
)

// Sentinel-ошибки сервисного слоя. Обработчики сопоставляют их через errors.Is.
var (
	ErrNotFound            = errors.New("ресурс не найден")
	ErrValidation          = errors.New("некорректные входные данные")
	ErrUpstreamUnavailable = errors.New("сервер коллаборации недоступен")
	ErrRejected            = errors.New("операция отклонена")
)

// upstreamError переводит ошибку клиента сервера коллаборации в sentinel-ошибку.
// notFound — сообщение для ответа 404 (пустое — сообщение сервера коллаборации).
func upstreamError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, collabclient.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	var se *collabclient.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	msg := se.Message()
	switch {
	case collabclient.IsNotFound(err):
		if notFound != "" {
			msg = notFound
		}
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case collabclient.IsBadRequest(err):
		return fmt.Errorf("%w: %s", ErrValidation, msg)
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/grouponesailor/tier2/internal/domain/model"
)

// FileViewRepository — статистика просмотров файлов (file_views).
type FileViewRepository interface {
	// Record увеличивает счётчик просмотров пользователя; создаёт запись при первом просмотре.
	Record(ctx context.Context, itemID, userID string, at time.Time) error
	// ListByItem возвращает просмотры элемента, последние первыми.
	ListByItem(ctx context.Context, itemID string) ([]model.FileView, error)
}

type fileViewRepo struct {
	db DBTX
}

// NewFileViewRepository создаёт репозиторий просмотров.
func NewFileViewRepository(db DBTX) FileViewRepository {
	return &fileViewRepo{db: db}
}

func (r *fileViewRepo) Record(ctx context.Context, itemID, userID string, at time.Time) error {
	query := `
		INSERT INTO file_views (item_id, user_id, view_counter, first_view_date, last_view_date)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (item_id, user_id) DO UPDATE
		SET view_counter = file_views.view_counter + 1,
			last_view_date = EXCLUDED.last_view_date`

	if _, err := r.db.Exec(ctx, query, itemID, userID, at); err != nil {
		return fmt.Errorf("ошибка записи просмотра: %w", err)
	}
	return nil
}

func (r *fileViewRepo) ListByItem(ctx context.Context, itemID string) ([]model.FileView, error) {
	query := `
		SELECT user_id, view_counter, first_view_date, last_view_date
		FROM file_views
		WHERE item_id = $1
		ORDER BY last_view_date DESC, user_id`

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения просмотров: %w", err)
	}
	defer rows.Close()

	views := make([]model.FileView, 0)
	for rows.Next() {
		var v model.FileView
		if err := rows.Scan(&v.UserID, &v.ViewCounter, &v.FirstViewDate, &v.LastViewDate); err != nil {
			return nil, fmt.Errorf("ошибка сканирования просмотра: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

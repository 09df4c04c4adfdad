package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/threads-poster/internal/models"
)

type PostingHistoryRepository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*models.PostingHistory, error)
}

type postingHistoryRepository struct {
	db     *sql.DB
	driver string
}

func NewPostingHistoryRepository(db *sql.DB, driver string) PostingHistoryRepository {
	return &postingHistoryRepository{db: db, driver: driver}
}

func (r *postingHistoryRepository) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TIMESTAMP"
	if r.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}

	query := `
		CREATE TABLE IF NOT EXISTS posting_history (
			id ` + id + `,
			cycle_id TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			text_preview TEXT NOT NULL,
			media_id TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at ` + ts + ` NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := rebind(r.driver, `
		INSERT INTO posting_history (cycle_id, row_index, text_preview, media_id, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.CycleID, ph.Row, ph.TextPreview, ph.MediaID, ph.ErrorMessage, ph.CreatedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) ListRecent(ctx context.Context, limit int) ([]*models.PostingHistory, error) {
	query := rebind(r.driver, `
		SELECT id, cycle_id, row_index, text_preview, media_id, error_message, created_at
		FROM posting_history
		ORDER BY id DESC
		LIMIT $1
	`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	phs := []*models.PostingHistory{}
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.CycleID, &ph.Row, &ph.TextPreview, &ph.MediaID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}
	return phs, rows.Err()
}

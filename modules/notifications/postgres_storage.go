package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgecrm/forgecrm/pkg/pg"
)

// PostgresStorage is a Storage implementation backed by PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNotification)
	}
	if notif.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidNotification)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		notif.ID, notif.UserID, string(notif.Type), notif.Title, notif.Message,
		notif.Link, notif.Read, notif.ReadAt, notif.CreatedAt,
	)
	return err
}

func (s *PostgresStorage) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, link, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message,
			&n.Link, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = Type(typ)
		out = append(out, n)
	}

	return out, rows.Err()
}

func (s *PostgresStorage) MarkRead(ctx context.Context, userID, notifID string) error {
	// Already-read rows keep their original read_at; the WHERE clause makes
	// repeated marking a no-op at the database level.
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND id = $2 AND is_read = FALSE`,
		userID, notifID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "already read" (fine) from "no such notification".
		var exists bool
		err := s.pool.QueryRow(ctx, `
			SELECT TRUE FROM notifications WHERE user_id = $1 AND id = $2`,
			userID, notifID,
		).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) || pg.IsNotFoundError(err) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *PostgresStorage) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	return err
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	).Scan(&count)
	return count, err
}

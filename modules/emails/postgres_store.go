package emails

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgecrm/forgecrm/pkg/pg"
)

// PostgresStore is a Store implementation backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed email store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const messageColumns = `id, contact_id, user_id, recipient_email, recipient_name,
	subject, body_html, template_id, status, failure_reason,
	sent_at, delivered_at, opened_at, created_at, updated_at`

func (s *PostgresStore) Record(ctx context.Context, msg Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO email_messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		msg.ID, msg.ContactID, msg.UserID, msg.To, msg.ToName,
		msg.Subject, msg.Body, msg.TemplateID, string(msg.Status), msg.FailureReason,
		msg.SentAt, msg.DeliveredAt, msg.OpenedAt, msg.CreatedAt, msg.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM email_messages
		WHERE id = $1`, id)

	msg, err := scanMessage(row)
	if pg.IsNotFoundError(err) {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return msg, err
}

// Transition locks the row, checks the lifecycle rules in application code,
// and applies the update inside one transaction. FOR UPDATE serializes
// concurrent callbacks for the same message, so exactly one caller observes
// each first move into a status.
func (s *PostgresStore) Transition(ctx context.Context, id string, next Status, at time.Time) (Status, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var raw string
	err = tx.QueryRow(ctx, `
		SELECT status FROM email_messages WHERE id = $1 FOR UPDATE`, id,
	).Scan(&raw)
	if pg.IsNotFoundError(err) {
		return "", fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if err != nil {
		return "", err
	}

	previous := Status(raw)
	if !previous.CanTransitionTo(next) {
		return previous, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, next)
	}

	var column string
	switch next {
	case StatusSent:
		column = "sent_at"
	case StatusDelivered:
		column = "delivered_at"
	case StatusOpened:
		column = "opened_at"
	}

	query := `UPDATE email_messages SET status = $1, updated_at = $2 WHERE id = $3`
	args := []any{string(next), at, id}
	if column != "" {
		query = fmt.Sprintf(
			`UPDATE email_messages SET status = $1, updated_at = $2, %s = $2 WHERE id = $3`,
			column,
		)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return previous, err
	}

	return previous, tx.Commit(ctx)
}

func (s *PostgresStore) ListByContact(ctx context.Context, contactID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM email_messages
		WHERE contact_id = $1
		ORDER BY sent_at DESC NULLS LAST, created_at DESC`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	return out, rows.Err()
}

func scanMessage(row pgx.Row) (Message, error) {
	var msg Message
	var status string
	err := row.Scan(
		&msg.ID, &msg.ContactID, &msg.UserID, &msg.To, &msg.ToName,
		&msg.Subject, &msg.Body, &msg.TemplateID, &status, &msg.FailureReason,
		&msg.SentAt, &msg.DeliveredAt, &msg.OpenedAt, &msg.CreatedAt, &msg.UpdatedAt,
	)
	msg.Status = Status(status)
	return msg, err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository implements message.Repository using PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new message row.
func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO messages (id, student_id, parent_id, channel, content, status, created_at, sent_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.StudentID, m.ParentID, string(m.Channel), m.Content, string(m.Status), m.CreatedAt, m.SentAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domainErrors.ErrStudentNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by its ID.
func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	return r.scanMessage(r.db(ctx).QueryRow(ctx,
		`SELECT id, student_id, parent_id, channel, content, status, created_at, sent_at
		 FROM messages WHERE id = $1`, id))
}

// ListByStudent lists a student's messages, newest first.
func (r *MessageRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*message.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, student_id, parent_id, channel, content, status, created_at, sent_at
		 FROM messages WHERE student_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		studentID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*message.Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkSentIfPending stamps the delivery outcome with a conditional write.
func (r *MessageRepository) MarkSentIfPending(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE messages SET status=$2, sent_at=$3 WHERE id=$1 AND status=$4`,
		id, string(message.StatusSent), sentAt, string(message.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark message sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailedIfPending records a failed delivery attempt.
func (r *MessageRepository) MarkFailedIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE messages SET status=$2 WHERE id=$1 AND status=$3`,
		id, string(message.StatusFailed), string(message.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark message failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepository) scanMessage(s scanner) (*message.Message, error) {
	m := &message.Message{}
	var channel, status string
	err := s.Scan(&m.ID, &m.StudentID, &m.ParentID, &channel, &m.Content, &status, &m.CreatedAt, &m.SentAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Channel = message.Channel(channel)
	m.Status = message.Status(status)
	return m, nil
}

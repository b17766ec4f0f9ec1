package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/message"
)

const messageColumns = `id, sender_id, receiver_id, subject, content, kind, read, broadcast, thread_id, reply_to_id, created_at`

type dbMessage struct {
	ID         string      `db:"id"`
	SenderID   string      `db:"sender_id"`
	ReceiverID null.String `db:"receiver_id"`
	Subject    string      `db:"subject"`
	Content    string      `db:"content"`
	Kind       string      `db:"kind"`
	Read       bool        `db:"read"`
	Broadcast  bool        `db:"broadcast"`
	ThreadID   null.String `db:"thread_id"`
	ReplyToID  null.String `db:"reply_to_id"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (m dbMessage) toMessage() message.Message {
	return message.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Subject:    m.Subject,
		Content:    m.Content,
		Kind:       m.Kind,
		Read:       m.Read,
		Broadcast:  m.Broadcast,
		ThreadID:   m.ThreadID,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

const insertMessageQuery = `
INSERT INTO message (sender_id, receiver_id, subject, content, kind, read, broadcast, thread_id, reply_to_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	err := repo.db.QueryRowContext(
		ctx, insertMessageQuery,
		msg.SenderID, msg.ReceiverID, msg.Subject, msg.Content, msg.Kind,
		msg.Read, msg.Broadcast, msg.ThreadID, msg.ReplyToID, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "creating message")
	}
	return msg, nil
}

// CreateMessages inserts all rows in a single transaction so a partial
// fan-out never becomes visible.
func (repo messageRepository) CreateMessages(ctx context.Context, msgs []message.Message) ([]message.Message, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}

	created := make([]message.Message, 0, len(msgs))
	for _, msg := range msgs {
		err = tx.QueryRowContext(
			ctx, insertMessageQuery,
			msg.SenderID, msg.ReceiverID, msg.Subject, msg.Content, msg.Kind,
			msg.Read, msg.Broadcast, msg.ThreadID, msg.ReplyToID, msg.CreatedAt,
		).Scan(&msg.ID)
		if err != nil {
			_ = tx.Rollback()
			return nil, errors.Wrap(err, "creating messages")
		}
		created = append(created, msg)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing messages")
	}
	return created, nil
}

func (repo messageRepository) getMessage(ctx context.Context, query string, args ...interface{}) (message.Message, error) {
	var m dbMessage
	if err := repo.db.GetContext(ctx, &m, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "getting message")
	}
	return m.toMessage(), nil
}

func (repo messageRepository) selectMessages(ctx context.Context, query string, args ...interface{}) ([]message.Message, error) {
	var rows []dbMessage
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}
	msgs := make([]message.Message, 0, len(rows))
	for _, m := range rows {
		msgs = append(msgs, m.toMessage())
	}
	return msgs, nil
}

func (repo messageRepository) GetMessageByID(ctx context.Context, id string) (message.Message, error) {
	return repo.getMessage(ctx, `SELECT `+messageColumns+` FROM message WHERE id = $1`, id)
}

func (repo messageRepository) GetThreadMessages(ctx context.Context, threadID string) ([]message.Message, error) {
	return repo.selectMessages(
		ctx,
		`SELECT `+messageColumns+` FROM message WHERE id = $1 OR thread_id = $1 ORDER BY created_at ASC, id ASC`,
		threadID,
	)
}

func (repo messageRepository) QueryMessages(ctx context.Context, filter *message.QueryFilter) ([]message.Message, error) {
	if filter.IsEmpty() {
		return repo.selectMessages(ctx, `SELECT `+messageColumns+` FROM message ORDER BY created_at DESC, id DESC`)
	}

	query, args, err := sqlx.In(
		`SELECT `+messageColumns+` FROM message WHERE sender_id IN (?) OR receiver_id IN (?) ORDER BY created_at DESC, id DESC`,
		filter.ParticipantIDs, filter.ParticipantIDs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "building messages query")
	}
	return repo.selectMessages(ctx, repo.db.Rebind(query), args...)
}

func (repo messageRepository) FindDuplicateSince(ctx context.Context, msg message.Message, since time.Time) (message.Message, error) {
	return repo.getMessage(
		ctx,
		`SELECT `+messageColumns+` FROM message
WHERE sender_id = $1 AND receiver_id IS NOT DISTINCT FROM $2 AND subject = $3 AND content = $4 AND created_at >= $5
ORDER BY created_at ASC, id ASC
LIMIT 1`,
		msg.SenderID, msg.ReceiverID, msg.Subject, msg.Content, since,
	)
}

func (repo messageRepository) MarkMessageRead(ctx context.Context, id string) (message.Message, error) {
	var m dbMessage
	err := repo.db.GetContext(ctx, &m, `UPDATE message SET read = true WHERE id = $1 RETURNING `+messageColumns, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "marking message read")
	}
	return m.toMessage(), nil
}

// DeleteExactDuplicates removes messages sharing exact
// (sender, receiver, subject, content), keeping the earliest row.
func (repo messageRepository) DeleteExactDuplicates(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, `
DELETE FROM message m
USING message keep
WHERE m.sender_id = keep.sender_id
  AND m.receiver_id IS NOT DISTINCT FROM keep.receiver_id
  AND m.subject = keep.subject
  AND m.content = keep.content
  AND (keep.created_at, keep.id) < (m.created_at, m.id)`)
	if err != nil {
		return 0, errors.Wrap(err, "deleting duplicate messages")
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting duplicate messages")
	}
	return int(deleted), nil
}

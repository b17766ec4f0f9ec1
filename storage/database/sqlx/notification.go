package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/notification"
)

const notificationColumns = `id, user_id, title, body, kind, read, action_url, created_at`

type dbNotification struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	Kind      string      `db:"kind"`
	Read      bool        `db:"read"`
	ActionURL null.String `db:"action_url"`
	CreatedAt time.Time   `db:"created_at"`
}

func (n dbNotification) toNotification() notification.Notification {
	return notification.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		Kind:      n.Kind,
		Read:      n.Read,
		ActionURL: n.ActionURL,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

// CreateNotifications inserts all rows in a single transaction.
func (repo notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) ([]notification.Notification, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}

	query := `
INSERT INTO notification (user_id, title, body, kind, read, action_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	created := make([]notification.Notification, 0, len(notifs))
	for _, notif := range notifs {
		err = tx.QueryRowContext(
			ctx, query,
			notif.UserID, notif.Title, notif.Body, notif.Kind, notif.Read, notif.ActionURL, notif.CreatedAt,
		).Scan(&notif.ID)
		if err != nil {
			_ = tx.Rollback()
			return nil, errors.Wrap(err, "creating notifications")
		}
		created = append(created, notif)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing notifications")
	}
	return created, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var n dbNotification
	err := repo.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notification WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return n.toNotification(), nil
}

func (repo notificationRepository) QueryNotificationsByUserID(ctx context.Context, userID string) ([]notification.Notification, error) {
	var rows []dbNotification
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+notificationColumns+` FROM notification WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, n := range rows {
		notifs = append(notifs, n.toNotification())
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	var n dbNotification
	err := repo.db.GetContext(ctx, &n, `UPDATE notification SET read = true WHERE id = $1 RETURNING `+notificationColumns, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "marking notification read")
	}
	return n.toNotification(), nil
}

package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) ([]notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]notification.Notification, 0, len(notifs))
	for _, notif := range notifs {
		n := notif
		n.ID = uuid.New().String()
		repo.db.table[n.ID] = &n
		repo.db.order = append(repo.db.order, n.ID)
		created = append(created, n)
	}
	return created, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotificationsByUserID(ctx context.Context, userID string) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []notification.Notification
	for _, id := range repo.db.order {
		if n, ok := repo.db.table[id]; ok && n.UserID == userID {
			notifs = append(notifs, *n)
		}
	}
	// newest first
	sort.SliceStable(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.Read = true
	return *n, nil
}

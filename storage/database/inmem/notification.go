package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, notifs []notification.Notification) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range notifs {
		repo.db.tables.notifications[n.ID] = n
	}
	return nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter, page core.Pagination) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.tables.notifications {
		if n.UserID != filter.UserID || (filter.UnreadOnly && n.IsRead()) {
			continue
		}
		notifs = append(notifs, n)
	}
	sort.SliceStable(notifs, func(i, j int) bool {
		if !notifs[i].CreatedAt.Equal(notifs[j].CreatedAt) {
			return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
		}
		return notifs[i].ID < notifs[j].ID
	})
	return core.Paginate(notifs, page), nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, notif := range repo.db.tables.notifications {
		if notif.UserID == userID && !notif.IsRead() {
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID string, ids []string, at time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, notif := range repo.db.tables.notifications {
		if notif.UserID != userID || notif.IsRead() {
			continue
		}
		if len(ids) > 0 && !core.ContainsString(ids, id) {
			continue
		}
		notif.ReadAt = core.TimePtr(at)
		repo.db.tables.notifications[id] = notif
		n++
	}
	return n, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, userID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	notif, ok := repo.db.tables.notifications[id]
	if !ok || notif.UserID != userID {
		return notification.ErrNotFound
	}
	delete(repo.db.tables.notifications, id)
	return nil
}

package pgrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/notification"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/storage/database"
)

var notificationColumns = []string{"id", "user_id", "kind", "title", "body", "link", "read_at", "created_at"}

type notificationRepository struct {
	db database.Querier
}

func NewNotificationRepository(db database.Querier) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	qb := psql.Insert("notifications").Columns(notificationColumns...)
	for _, n := range notifs {
		qb = qb.Values(n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Link, n.ReadAt, n.CreatedAt)
	}
	_, err := exec(ctx, repo.db, qb)
	return errors.Wrap(err, "inserting notifications")
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, page core.Pagination) ([]notification.Notification, error) {
	notifs := make([]notification.Notification, 0)
	if !isUUID(filter.UserID) {
		return notifs, nil
	}
	qb := psql.Select(notificationColumns...).From("notifications").Where(sq.Eq{"user_id": filter.UserID})
	if filter.UnreadOnly {
		qb = qb.Where(sq.Eq{"read_at": nil})
	}
	qb = qb.OrderBy("created_at DESC", "id")

	if err := selectAll(ctx, repo.db, &notifs, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	qb := psql.Select("count(*)").From("notifications").Where(sq.Eq{"user_id": userID, "read_at": nil})
	n, err := count(ctx, repo.db, qb)
	return n, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	qb := psql.Update("notifications").Set("read_at", at).Where(sq.Eq{"user_id": userID, "read_at": nil})
	if len(ids) > 0 {
		valid := make([]string, 0, len(ids))
		for _, id := range ids {
			if isUUID(id) {
				valid = append(valid, id)
			}
		}
		if len(valid) == 0 {
			return 0, nil
		}
		qb = qb.Where(sq.Eq{"id": valid})
	}
	n, err := exec(ctx, repo.db, qb)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	return int(n), nil
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, userID, id string) error {
	if !isUUID(userID) || !isUUID(id) {
		return notification.ErrNotFound
	}
	qb := psql.Delete("notifications").Where(sq.Eq{"id": id, "user_id": userID})
	return execOne(ctx, repo.db, qb, notification.ErrNotFound)
}

package notification

import (
	"bytes"
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/user"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type (
	Repository interface {
		CreateNotifications(ctx context.Context, notifs []Notification) error
		// QueryNotifications returns the notifications of filter.UserID, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter, page core.Pagination) ([]Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		// MarkRead sets ReadAt on the unread notifications of userID among ids; all of them when ids is empty.
		MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int, error)
		DeleteNotification(ctx context.Context, userID, id string) error
	}

	Service interface {
		Notify(ctx context.Context, nn NewNotification) ([]Notification, error)
		QueryMine(ctx context.Context, userID string, unreadOnly bool, page core.Pagination) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID string, ids []string) (int, error)
		MarkAllRead(ctx context.Context, userID string) (int, error)
		Delete(ctx context.Context, userID, id string) error
	}

	service struct {
		repo    Repository
		users   user.Service
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, mailSvc core.EmailService) Service {
	return &service{repo: repo, users: users, mailSvc: mailSvc}
}

// recipients resolves the explicit users and the role holders of nn, deduplicated and active only.
func (svc *service) recipients(ctx context.Context, nn NewNotification) ([]user.User, error) {
	seen := make(map[string]struct{})
	var out []user.User
	add := func(users []user.User) {
		for _, usr := range users {
			if _, ok := seen[usr.ID]; ok || !usr.Active() {
				continue
			}
			seen[usr.ID] = struct{}{}
			out = append(out, usr)
		}
	}

	if len(nn.UserIDs) > 0 {
		users, err := svc.users.Query(ctx, &user.QueryFilter{IDs: nn.UserIDs}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		add(users)
	}
	if len(nn.Roles) > 0 {
		users, err := svc.users.Query(ctx, &user.QueryFilter{Roles: nn.Roles, IsActive: core.BoolPtr(true)}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying role holders")
		}
		add(users)
	}
	return out, nil
}

// Notify stores one notification per recipient and optionally emails those having an address.
// Within a transaction the emails go out once it commits.
func (svc *service) Notify(ctx context.Context, nn NewNotification) ([]Notification, error) {
	recipients, err := svc.recipients(ctx, nn)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return []Notification{}, nil
	}

	now := core.NowFunc()
	notifs := make([]Notification, 0, len(recipients))
	for _, usr := range recipients {
		notifs = append(notifs, Notification{
			ID:        uuid.NewString(),
			UserID:    usr.ID,
			Kind:      nn.Kind,
			Title:     nn.Title,
			Body:      nn.Body,
			Link:      nn.Link,
			CreatedAt: now,
		})
	}
	if err = svc.repo.CreateNotifications(ctx, notifs); err != nil {
		return nil, errors.Wrap(err, "creating notifications")
	}

	if nn.SendEmail {
		msgs, err := emails(recipients, nn)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			core.AfterCommit(ctx, func() { svc.mailSvc.SendMessages(msgs...) })
		}
	}
	return notifs, nil
}

func emails(recipients []user.User, nn NewNotification) ([]*core.EmailMessage, error) {
	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, usr := range recipients {
		if usr.Email == "" {
			continue
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      nn.Title,
			TemplateName: "notification",
			TemplateData: map[string]interface{}{
				"Name":  usr.Name,
				"Title": nn.Title,
				"Body":  nn.Body,
				"Link":  nn.Link,
			},
		}
		for _, f := range nn.Attachments {
			if err := msg.Attach(bytes.NewReader(f.Content), f.Filename, f.ContentType); err != nil {
				return nil, errors.Wrap(err, "attaching "+f.Filename)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (svc *service) QueryMine(ctx context.Context, userID string, unreadOnly bool, page core.Pagination) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{UserID: userID, UnreadOnly: unreadOnly}, page)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	ids = core.UniqueStrings(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.MarkRead(ctx, userID, ids, core.NowFunc())
}

func (svc *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkRead(ctx, userID, nil, core.NowFunc())
}

func (svc *service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteNotification(ctx, userID, id)
}

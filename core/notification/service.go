package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("notification not found")
	ErrAccessDenied = errors.New("notification access denied")

	errNoRecipients = errors.New("no valid recipients")
)

type (
	Repository interface {
		// CreateNotifications inserts all rows in a single transaction.
		CreateNotifications(ctx context.Context, notifs []Notification) ([]Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		// QueryNotificationsByUserID returns a user's notifications,
		// newest first.
		QueryNotificationsByUserID(ctx context.Context, userID string) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string) (Notification, error)
	}

	Service interface {
		QueryForUser(ctx context.Context, usr user.User) ([]Notification, error)
		// Fanout expands the audience selector and creates one
		// notification per resolved user.
		Fanout(ctx context.Context, sender user.User, nn NewNotification) ([]Notification, error)
		MarkRead(ctx context.Context, requester user.User, id string) (Notification, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

func (svc *service) QueryForUser(ctx context.Context, usr user.User) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUserID(ctx, usr.ID)
}

func (svc *service) resolveAudience(ctx context.Context, sender user.User, nn NewNotification) ([]user.User, error) {
	var audience []user.User
	var err error

	switch {
	case len(nn.Recipients) > 0:
		audience, err = svc.usrSvc.GetByIDs(ctx, nn.Recipients...)
	case nn.Audience == message.AudienceAll:
		// "all" targets the school community, never other admins
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleTeacher, user.RoleParent, user.RoleStudent)
	case nn.Audience == message.AudienceTeachers:
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleTeacher)
	case nn.Audience == message.AudienceParents:
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleParent)
	case nn.Audience == message.AudienceStudents:
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleStudent)
	default:
		return nil, core.NewValidationError(errNoRecipients, core.FieldError{Field: "audience", Error: errNoRecipients.Error()})
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving audience")
	}

	seen := make(map[string]bool, len(audience))
	recipients := make([]user.User, 0, len(audience))
	for _, usr := range audience {
		// explicit recipient lists may name deactivated accounts
		if usr.ID == sender.ID || !usr.Active() || seen[usr.ID] {
			continue
		}
		seen[usr.ID] = true
		recipients = append(recipients, usr)
	}
	if len(recipients) == 0 {
		return nil, core.NewValidationError(errNoRecipients, core.FieldError{Field: "recipients", Error: errNoRecipients.Error()})
	}
	return recipients, nil
}

func (svc *service) Fanout(ctx context.Context, sender user.User, nn NewNotification) ([]Notification, error) {
	nn.Clean()

	recipients, err := svc.resolveAudience(ctx, sender, nn)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notifs = append(notifs, Notification{
			UserID:    recipient.ID,
			Title:     nn.Title,
			Body:      nn.Body,
			Kind:      nn.Kind,
			ActionURL: null.NewString(nn.ActionURL, nn.ActionURL != ""),
			CreatedAt: now,
		})
	}
	return svc.repo.CreateNotifications(ctx, notifs)
}

func (svc *service) MarkRead(ctx context.Context, requester user.User, id string) (Notification, error) {
	notif, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if !(requester.IsAdmin() || notif.UserID == requester.ID) {
		return Notification{}, ErrAccessDenied
	}
	if notif.Read {
		return notif, nil
	}
	return svc.repo.MarkNotificationRead(ctx, notif.ID)
}

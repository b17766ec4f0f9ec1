package message

import (
	"context"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("message not found")
	ErrAccessDenied  = errors.New("conversation access denied")
	ErrSendForbidden = errors.New("insufficient rights to message this recipient")

	errNoRecipients = errors.New("no valid recipients")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// CreateMessages inserts all rows in a single transaction;
		// either every recipient gets their row or none do.
		CreateMessages(ctx context.Context, msgs []Message) ([]Message, error)
		GetMessageByID(ctx context.Context, id string) (Message, error)
		// GetThreadMessages returns every message whose id or thread id
		// equals threadID, ordered by (created_at, id) ascending.
		GetThreadMessages(ctx context.Context, threadID string) ([]Message, error)
		QueryMessages(ctx context.Context, filter *QueryFilter) ([]Message, error)
		// FindDuplicateSince returns an existing message with the same
		// (sender, receiver, subject, content) created at/after `since`,
		// or ErrNotFound.
		FindDuplicateSince(ctx context.Context, msg Message, since time.Time) (Message, error)
		MarkMessageRead(ctx context.Context, id string) (Message, error)
		// DeleteExactDuplicates removes messages sharing exact
		// (sender, receiver, subject, content), keeping the earliest.
		DeleteExactDuplicates(ctx context.Context) (int, error)
	}

	Service interface {
		QueryForUser(ctx context.Context, usr user.User) ([]Message, Stats, error)
		Send(ctx context.Context, sender user.User, nm NewMessage) (Message, error)
		Broadcast(ctx context.Context, sender user.User, nb NewBroadcast) ([]Message, error)
		ResolveThread(ctx context.Context, requester user.User, messageID string) (Conversation, error)
		Participants(ctx context.Context, requester user.User, messageID string) ([]Participant, error)
		MarkRead(ctx context.Context, requester user.User, messageID string) (Message, error)
		CleanupDuplicates(ctx context.Context) (int, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// scopeFilter derives the role-scoped query filter for a user; it is applied
// at the fetch boundary, never as a post-filter.
func scopeFilter(usr user.User) *QueryFilter {
	if usr.IsAdmin() {
		return &QueryFilter{}
	}
	ids := []string{usr.ID}
	if usr.IsParent() {
		ids = append(ids, usr.ChildIDs...)
	}
	return &QueryFilter{ParticipantIDs: ids}
}

func (svc *service) QueryForUser(ctx context.Context, usr user.User) ([]Message, Stats, error) {
	msgs, err := svc.repo.QueryMessages(ctx, scopeFilter(usr))
	if err != nil {
		return nil, Stats{}, errors.Wrap(err, "querying messages")
	}

	var stats Stats
	stats.TotalMessages = len(msgs)
	for _, m := range msgs {
		if m.SenderID == usr.ID {
			stats.SentMessages++
		}
		if m.ReceiverID.String == usr.ID {
			stats.ReceivedMessages++
			if !m.Read {
				stats.UnreadMessages++
			}
		}
	}
	return msgs, stats, nil
}

// CanSendTo applies the send permission rule: teachers and admins may message
// anyone; students and parents may only message teachers and admins.
func CanSendTo(sender, recipient user.User) bool {
	if sender.IsAdmin() || sender.IsTeacher() {
		return true
	}
	return recipient.IsTeacher() || recipient.IsAdmin()
}

func (svc *service) Send(ctx context.Context, sender user.User, nm NewMessage) (Message, error) {
	nm.Clean()

	recipient, err := svc.usrSvc.GetByID(ctx, nm.Recipient)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return Message{}, errors.Wrap(err, "finding recipient")
		}
		if recipient, err = svc.usrSvc.GetByUsernameOrEmail(ctx, nm.Recipient); err != nil {
			return Message{}, err
		}
	}
	if !CanSendTo(sender, recipient) {
		return Message{}, ErrSendForbidden
	}

	msg := Message{
		SenderID:   sender.ID,
		ReceiverID: null.StringFrom(recipient.ID),
		Subject:    nm.Subject,
		Content:    nm.Content,
		Kind:       nm.Kind,
		CreatedAt:  time.Now().UTC(),
	}

	if nm.ReplyTo != "" {
		parent, err := svc.repo.GetMessageByID(ctx, nm.ReplyTo)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return Message{}, core.NewValidationError(err, core.FieldError{Field: "reply_to", Error: err.Error()})
			}
			return Message{}, errors.Wrap(err, "finding replied-to message")
		}
		thread, err := svc.threadFor(ctx, parent)
		if err != nil {
			return Message{}, err
		}
		if !CanAccess(sender, thread) {
			return Message{}, ErrAccessDenied
		}
		rootID := parent.ID
		if parent.ThreadID.Valid {
			rootID = parent.ThreadID.String
		}
		msg.ThreadID = null.StringFrom(rootID)
		msg.ReplyToID = null.StringFrom(parent.ID)
	}

	// retried sends within the idempotency window return the original row
	// instead of inserting a duplicate
	since := msg.CreatedAt.Add(-svc.conf.MessageIdempotencyWindow)
	if dup, err := svc.repo.FindDuplicateSince(ctx, msg, since); err == nil {
		return dup, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Message{}, errors.Wrap(err, "checking for duplicate send")
	}

	return svc.repo.CreateMessage(ctx, msg)
}

// resolveAudience expands a broadcast selector to concrete active users,
// deduplicated and excluding the sender.
func (svc *service) resolveAudience(ctx context.Context, sender user.User, nb NewBroadcast) ([]user.User, error) {
	var audience []user.User
	var err error

	switch {
	case len(nb.Recipients) > 0:
		audience, err = svc.usrSvc.GetByIDs(ctx, nb.Recipients...)
	case nb.Audience == AudienceAll:
		// "all" targets the school community, never other admins
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleTeacher, user.RoleParent, user.RoleStudent)
	case nb.Audience == AudienceTeachers:
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleTeacher)
	case nb.Audience == AudienceParents:
		audience, err = svc.usrSvc.GetByRole(ctx, user.RoleParent)
	case nb.Audience == AudienceStudents:
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

func (svc *service) Broadcast(ctx context.Context, sender user.User, nb NewBroadcast) ([]Message, error) {
	nb.Clean()

	recipients, err := svc.resolveAudience(ctx, sender, nb)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msgs := make([]Message, 0, len(recipients))
	for _, recipient := range recipients {
		msgs = append(msgs, Message{
			SenderID:   sender.ID,
			ReceiverID: null.StringFrom(recipient.ID),
			Subject:    nb.Subject,
			Content:    nb.Content,
			Kind:       nb.Kind,
			Broadcast:  true,
			CreatedAt:  now,
		})
	}

	created, err := svc.repo.CreateMessages(ctx, msgs)
	if err != nil {
		return nil, errors.Wrap(err, "creating broadcast messages")
	}
	svc.mirrorToEmail(nb, recipients)
	return created, nil
}

// mirrorToEmail sends a copy of a broadcast to recipients with an email address.
func (svc *service) mirrorToEmail(nb NewBroadcast, recipients []user.User) {
	to := make([]mail.Address, 0, len(recipients))
	for _, usr := range recipients {
		if usr.Email != "" {
			to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
		}
	}
	if len(to) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:     to,
		Subject: nb.Subject,
		Body:    nb.Content,
	})
}

// threadFor returns the full conversation set containing m, unordered
// beyond the repository's (created_at, id) ordering.
func (svc *service) threadFor(ctx context.Context, m Message) ([]Message, error) {
	rootID := m.ID
	if m.ThreadID.Valid {
		rootID = m.ThreadID.String
	}
	msgs, err := svc.repo.GetThreadMessages(ctx, rootID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching thread")
	}
	return msgs, nil
}

// CanAccess reports whether usr may view the conversation: they are the
// sender or receiver of at least one message in it, it contains a broadcast,
// or they are an admin.
func CanAccess(usr user.User, msgs []Message) bool {
	if usr.IsAdmin() {
		return true
	}
	for _, m := range msgs {
		if m.SenderID == usr.ID || m.ReceiverID.String == usr.ID || m.Broadcast {
			return true
		}
	}
	return false
}

// dedupRoots collapses duplicate thread-root rows sharing
// (thread id, sender, subject, content), keeping the first encountered.
func dedupRoots(msgs []Message) []Message {
	seen := make(map[string]bool)
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.IsThreadRoot() {
			key := m.rootKey()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, m)
	}
	return out
}

func (svc *service) ResolveThread(ctx context.Context, requester user.User, messageID string) (Conversation, error) {
	m, err := svc.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return Conversation{}, err
	}
	msgs, err := svc.threadFor(ctx, m)
	if err != nil {
		return Conversation{}, err
	}

	// authorization runs before any content is returned
	if !CanAccess(requester, msgs) {
		return Conversation{}, ErrAccessDenied
	}

	msgs = dedupRoots(msgs)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })

	convID := m.ID
	if m.ThreadID.Valid {
		convID = m.ThreadID.String
	}
	return Conversation{ID: convID, Messages: msgs}, nil
}

// ParticipantIDs extracts the unique participant ids of a message set:
// senders always, receivers only for non-broadcast messages; first
// occurrence fixes position.
func ParticipantIDs(msgs []Message) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, 2*len(msgs))
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, m := range msgs {
		add(m.SenderID)
		if !m.Broadcast {
			add(m.ReceiverID.String)
		}
	}
	return ids
}

// roleLabel picks the display role of a user by highest priority role.
func roleLabel(usr user.User) string {
	switch {
	case usr.IsAdmin():
		return "admin"
	case usr.IsTeacher():
		return "teacher"
	case usr.IsParent():
		return "parent"
	case usr.IsStudent():
		return "student"
	}
	return ""
}

func (svc *service) Participants(ctx context.Context, requester user.User, messageID string) ([]Participant, error) {
	conv, err := svc.ResolveThread(ctx, requester, messageID)
	if err != nil {
		return nil, err
	}

	ids := ParticipantIDs(conv.Messages)
	users, err := svc.usrSvc.GetByIDs(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "resolving participants")
	}
	byID := make(map[string]user.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}

	participants := make([]Participant, 0, len(ids))
	for _, id := range ids {
		usr, ok := byID[id]
		if !ok {
			continue
		}
		participants = append(participants, Participant{
			ID:    usr.ID,
			Name:  usr.Name,
			Email: usr.Email,
			Role:  roleLabel(usr),
		})
	}
	return participants, nil
}

func (svc *service) MarkRead(ctx context.Context, requester user.User, messageID string) (Message, error) {
	m, err := svc.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if !(requester.IsAdmin() || m.ReceiverID.String == requester.ID) {
		return Message{}, ErrAccessDenied
	}
	if m.Read {
		return m, nil
	}
	return svc.repo.MarkMessageRead(ctx, m.ID)
}

func (svc *service) CleanupDuplicates(ctx context.Context) (int, error) {
	return svc.repo.DeleteExactDuplicates(ctx)
}

package message

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Kinds
const (
	KindGeneral        = "general"
	KindAcademic       = "academic"
	KindAdministrative = "administrative"
	KindUrgent         = "urgent"
)

// Audiences
const (
	AudienceAll      = "all"
	AudienceTeachers = "teachers"
	AudienceParents  = "parents"
	AudienceStudents = "students"
)

type Message struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`

	// ReceiverID is set per recipient; broadcast rows carry the fanned-out
	// recipient with Broadcast=true.
	ReceiverID null.String `json:"receiver_id"`

	Subject   string `json:"subject"`
	Content   string `json:"content"`
	Kind      string `json:"kind"`
	Read      bool   `json:"read"`
	Broadcast bool   `json:"broadcast"`

	// ThreadID is the id of the conversation's root message; null for
	// unthreaded messages.
	ThreadID  null.String `json:"thread_id"`
	ReplyToID null.String `json:"reply_to_id"`

	CreatedAt time.Time `json:"created_at"` // UTC
}

// IsThreadRoot reports whether the message is a thread-root candidate.
func (m Message) IsThreadRoot() bool {
	return !m.ReplyToID.Valid
}

// rootKey identifies duplicate thread-root rows created by retried sends.
func (m Message) rootKey() string {
	return m.ThreadID.String + "\x00" + m.SenderID + "\x00" + m.Subject + "\x00" + m.Content
}

// Conversation is the derived grouping of a root message and its replies.
// It has no stored identity beyond the root message's id.
type Conversation struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// Participant is a user summary derived from a conversation's message set.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Stats struct {
	TotalMessages    int `json:"totalMessages"`
	UnreadMessages   int `json:"unreadMessages"`
	SentMessages     int `json:"sentMessages"`
	ReceivedMessages int `json:"receivedMessages"`
}

type NewMessage struct {
	Recipient string `json:"recipient" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Kind      string `json:"kind" validate:"omitempty,oneof=general academic administrative urgent"`
	ReplyTo   string `json:"reply_to"`
}

func (nm *NewMessage) Clean() {
	nm.Recipient = core.CleanString(nm.Recipient)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Content = core.CleanString(nm.Content)
	if nm.Kind == "" {
		nm.Kind = KindGeneral
	}
}

type NewBroadcast struct {
	Audience   string   `json:"audience" validate:"omitempty,oneof=all teachers parents students"`
	Recipients []string `json:"recipients" validate:"omitempty,unique"`
	Subject    string   `json:"subject" validate:"required"`
	Content    string   `json:"content" validate:"required"`
	Kind       string   `json:"kind" validate:"omitempty,oneof=general academic administrative urgent"`
}

func (nb *NewBroadcast) Clean() {
	nb.Audience = core.CleanString(nb.Audience, true /* lower */)
	nb.Subject = core.CleanString(nb.Subject)
	nb.Content = core.CleanString(nb.Content)
	if nb.Kind == "" {
		nb.Kind = KindAdministrative
	}
}

// QueryFilter scopes message listing. An empty filter is unrestricted;
// ParticipantIDs limits rows to those sent or received by any of the ids.
type QueryFilter struct {
	ParticipantIDs []string
}

func (f *QueryFilter) IsEmpty() bool {
	return f == nil || len(f.ParticipantIDs) == 0
}

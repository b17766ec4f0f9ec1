package notification

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Kinds
const (
	KindInfo     = "info"
	KindWarning  = "warning"
	KindAcademic = "academic"
	KindUrgent   = "urgent"
)

type Notification struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	Kind      string      `json:"kind"`
	Read      bool        `json:"read"`
	ActionURL null.String `json:"action_url"`
	CreatedAt time.Time   `json:"created_at"` // UTC
}

type NewNotification struct {
	Audience   string   `json:"audience" validate:"omitempty,oneof=all teachers parents students"`
	Recipients []string `json:"recipients" validate:"omitempty,unique"`
	Title      string   `json:"title" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	Kind       string   `json:"kind" validate:"omitempty,oneof=info warning academic urgent"`
	ActionURL  string   `json:"action_url" validate:"omitempty,url"`
}

func (nn *NewNotification) Clean() {
	nn.Audience = core.CleanString(nn.Audience, true /* lower */)
	nn.Title = core.CleanString(nn.Title)
	nn.Body = core.CleanString(nn.Body)
	if nn.Kind == "" {
		nn.Kind = KindInfo
	}
}

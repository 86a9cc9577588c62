// Package activity turns claim edits into ordered, human-readable notifications.
package activity

import (
	"fmt"
	"html"
	"time"
)

type Kind string

const (
	KindClaimCreated      Kind = "claim_created"
	KindStatusChanged     Kind = "status_changed"
	KindAssigneeChanged   Kind = "assignee_changed"
	KindFieldUpdated      Kind = "field_updated"
	KindCustomerConfirmed Kind = "customer_confirmed"
	KindCommentAdded      Kind = "comment_added"
)

// Field labels shown for free-text updates.
const (
	LabelContainment = "Hành động ngăn chặn (D3)"
	LabelRootCause   = "Nguyên nhân gốc rễ (D4)"
	LabelCorrective  = "Hành động khắc phục (D5)"
	LabelPreventive  = "Hành động phòng ngừa (D6)"
)

// Message is the structured source of truth for a notification. Markup is produced
// only by RenderHTML.
type Message struct {
	Kind       Kind   `json:"kind"`
	ActorName  string `json:"actorName"`
	ClaimID    string `json:"claimId"`
	FieldLabel string `json:"fieldLabel,omitempty"`
	OldValue   string `json:"oldValue,omitempty"`
	NewValue   string `json:"newValue,omitempty"`
	TargetName string `json:"targetName,omitempty"`
}

// RenderHTML renders the message with <strong>/<em> emphasis. Every interpolated
// value is escaped so only those two tags can appear.
func (m Message) RenderHTML() string {
	return m.render(func(s string) string { return "<strong>" + html.EscapeString(s) + "</strong>" },
		func(s string) string { return "<em>" + html.EscapeString(s) + "</em>" })
}

// RenderText renders the message without markup, for logs, email and terminals.
func (m Message) RenderText() string {
	plain := func(s string) string { return s }
	return m.render(plain, plain)
}

func (m Message) render(strong, em func(string) string) string {
	actor := strong(m.ActorName)
	id := strong(m.ClaimID)
	switch m.Kind {
	case KindClaimCreated:
		return fmt.Sprintf("%s đã tạo claim %s và gán cho %s.", actor, id, strong(m.TargetName))
	case KindStatusChanged:
		return fmt.Sprintf("%s đã cập nhật %s của claim %s từ \"%s\" thành \"%s\".",
			actor, strong("trạng thái"), id, em(m.OldValue), em(m.NewValue))
	case KindAssigneeChanged:
		return fmt.Sprintf("%s đã gán claim %s cho %s.", actor, id, strong(m.TargetName))
	case KindFieldUpdated:
		return fmt.Sprintf("%s đã cập nhật %s cho claim %s.", actor, strong(m.FieldLabel), id)
	case KindCustomerConfirmed:
		return fmt.Sprintf("%s đã xác nhận claim %s đã được %s.", actor, id, strong("khách hàng đồng ý"))
	case KindCommentAdded:
		return fmt.Sprintf("%s đã bình luận về claim %s.", actor, id)
	}
	return fmt.Sprintf("%s đã cập nhật claim %s.", actor, id)
}

// Notification is one activity record. Only Read changes after creation.
type Notification struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claimId"`
	ActorID   string    `json:"userId"`
	Message   Message   `json:"message"`
	Read      bool      `json:"isRead"`
	CreatedAt time.Time `json:"timestamp"`
}

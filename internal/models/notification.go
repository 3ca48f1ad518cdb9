package models

import "time"

// NotificationType selects the delivery channel.
type NotificationType string

const (
	TypeEmail NotificationType = "email"
	TypePush  NotificationType = "push"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	return t == TypeEmail || t == TypePush
}

// DeliveryStatus is the lifecycle tag set after a delivery attempt.
// A notification is created pending and mutated exactly once by the
// caller of the orchestrator; it never transitions backward.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusPartial   DeliveryStatus = "partial"
)

type Notification struct {
	ID             int64            `json:"id"`
	AuthUserID     string           `json:"auth_user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Content        string           `json:"content"`
	Email          *string          `json:"email,omitempty"`
	IsRead         bool             `json:"is_read"`
	DeliveryStatus DeliveryStatus   `json:"delivery_status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NotificationPatch lists the mutable fields of a notification.
// Nil fields are left untouched.
type NotificationPatch struct {
	IsRead         *bool           `json:"is_read,omitempty"`
	DeliveryStatus *DeliveryStatus `json:"delivery_status,omitempty"`
}

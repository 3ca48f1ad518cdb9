package models

import "time"

// NotificationTemplate holds subject/content strings with
// {{placeholder}} tokens. Name is unique; uniqueness is enforced at
// write time by the store.
type NotificationTemplate struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      NotificationType  `json:"type"`
	Subject   string            `json:"subject"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TemplatePatch lists the mutable fields of a template.
type TemplatePatch struct {
	Name     *string           `json:"name,omitempty"`
	Type     *NotificationType `json:"type,omitempty"`
	Subject  *string           `json:"subject,omitempty"`
	Content  *string           `json:"content,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

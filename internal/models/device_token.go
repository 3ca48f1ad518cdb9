package models

import "time"

// DeviceType identifies the platform a push token belongs to.
type DeviceType string

const (
	DeviceIOS     DeviceType = "ios"
	DeviceAndroid DeviceType = "android"
	DeviceWeb     DeviceType = "web"
)

// Valid reports whether d is a known device type.
func (d DeviceType) Valid() bool {
	return d == DeviceIOS || d == DeviceAndroid || d == DeviceWeb
}

// DeviceToken is a registered push token. A token belongs to exactly
// one user at a time; tokens the provider reports as permanently
// invalid are deactivated, never deleted.
type DeviceToken struct {
	ID         int64      `json:"id"`
	AuthUserID string     `json:"auth_user_id"`
	DeviceType DeviceType `json:"device_type"`
	Token      string     `json:"token"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DeviceTokenPatch lists the mutable fields of a device token.
type DeviceTokenPatch struct {
	IsActive *bool `json:"is_active,omitempty"`
}

package server

import "notification-service/internal/common/validation"

// Request body schemas. Validation happens before any service call so
// handlers only see well-formed input.

var registerTokenSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"auth_user_id": {Type: "string", MinLength: validation.IntPtr(1)},
		"device_type":  {Type: "string", Enum: []string{"ios", "android", "web"}},
		"token":        {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(4096)},
	},
	Required: []string{"auth_user_id", "device_type", "token"},
}

var updateTokenSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"auth_user_id": {Type: "string", MinLength: validation.IntPtr(1)},
		"token":        {Type: "string", MinLength: validation.IntPtr(1)},
		"is_active":    {Type: "boolean"},
	},
	Required: []string{"auth_user_id", "token", "is_active"},
}

var deleteTokenSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"auth_user_id": {Type: "string", MinLength: validation.IntPtr(1)},
		"token":        {Type: "string", MinLength: validation.IntPtr(1)},
	},
	Required: []string{"auth_user_id", "token"},
}

var sendNotificationSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"auth_user_id": {Type: "string", MinLength: validation.IntPtr(1)},
		"type":         {Type: "string", Enum: []string{"email", "push"}},
		"template_id":  {Type: "integer", Minimum: float64Ptr(1)},
		"email":        {Type: "string"},
		"data":         {Type: "object"},
	},
	Required: []string{"auth_user_id", "type", "template_id"},
}

var broadcastSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"user_ids":          {Type: "array", Items: &validation.Property{Type: "string"}},
		"template_id":       {Type: "integer", Minimum: float64Ptr(1)},
		"data":              {Type: "object"},
		"notification_type": {Type: "string"},
		"additional_data":   {Type: "object"},
		"priority":          {Type: "string", Enum: []string{"high", "normal"}},
	},
	Required: []string{"user_ids", "template_id"},
}

var markReadSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"notification_id": {Type: "integer", Minimum: float64Ptr(1)},
		"auth_user_id":    {Type: "string", MinLength: validation.IntPtr(1)},
	},
	Required: []string{"notification_id", "auth_user_id"},
}

var deleteNotificationSchema = markReadSchema

var createTemplateSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"name":     {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(255)},
		"type":     {Type: "string", Enum: []string{"email", "push"}},
		"subject":  {Type: "string", MinLength: validation.IntPtr(1)},
		"content":  {Type: "string", MinLength: validation.IntPtr(1)},
		"metadata": {Type: "object"},
	},
	Required: []string{"name", "type", "subject", "content"},
}

var updateTemplateSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"name":     {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(255)},
		"type":     {Type: "string", Enum: []string{"email", "push"}},
		"subject":  {Type: "string", MinLength: validation.IntPtr(1)},
		"content":  {Type: "string", MinLength: validation.IntPtr(1)},
		"metadata": {Type: "object"},
	},
}

func float64Ptr(f float64) *float64 {
	return &f
}

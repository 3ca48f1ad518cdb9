package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenSchema = JSONSchema{
	Type: "object",
	Properties: map[string]Property{
		"auth_user_id": {Type: "string", MinLength: IntPtr(1)},
		"device_type":  {Type: "string", Enum: []string{"ios", "android", "web"}},
		"token":        {Type: "string", MinLength: IntPtr(1), MaxLength: IntPtr(4096)},
	},
	Required: []string{"auth_user_id", "device_type", "token"},
}

func TestValidateInput_Valid(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"auth_user_id": "user-1",
		"device_type":  "android",
		"token":        "tok-abc",
	}, tokenSchema)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateInput_MissingRequired(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"auth_user_id": "user-1",
	}, tokenSchema)

	require.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateInput_EnumViolation(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"auth_user_id": "user-1",
		"device_type":  "desktop",
		"token":        "tok-abc",
	}, tokenSchema)

	require.False(t, result.Valid)

	found := false
	for _, e := range result.Errors {
		if e.Field == "device_type" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateInput_WrongType(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"auth_user_id": 42,
		"device_type":  "ios",
		"token":        "tok-abc",
	}, tokenSchema)

	assert.False(t, result.Valid)
}

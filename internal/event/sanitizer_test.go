package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeData_RedactsSensitiveKeys(t *testing.T) {
	data := map[string]any{
		"password":              "hunter2",
		"password_confirmation": "hunter2",
		"token":                 "abc123",
		"api_key":               "key-9",
		"secret":                "shh",
		"email":                 "teacher@mathg.test",
	}

	out := SanitizeData(data)

	assert.Equal(t, RedactedPlaceholder, out["password"])
	assert.Equal(t, RedactedPlaceholder, out["password_confirmation"])
	assert.Equal(t, RedactedPlaceholder, out["token"])
	assert.Equal(t, RedactedPlaceholder, out["api_key"])
	assert.Equal(t, RedactedPlaceholder, out["secret"])
	assert.Equal(t, "teacher@mathg.test", out["email"])

	// The input map is untouched.
	assert.Equal(t, "hunter2", data["password"])
}

func TestSanitizeData_NilAndEmpty(t *testing.T) {
	assert.Nil(t, SanitizeData(nil))
	assert.Empty(t, SanitizeData(map[string]any{}))
}

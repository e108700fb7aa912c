package event

// RedactedPlaceholder replaces sensitive values wherever request-shaped
// data is echoed into logs or metadata.
const RedactedPlaceholder = "***REDACTED***"

var sensitiveKeys = []string{
	"password",
	"password_confirmation",
	"token",
	"api_key",
	"secret",
}

// SanitizeData returns a copy of data with known sensitive keys replaced by
// the redaction placeholder. The input map is never mutated.
func SanitizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, key := range sensitiveKeys {
		if _, ok := out[key]; ok {
			out[key] = RedactedPlaceholder
		}
	}
	return out
}

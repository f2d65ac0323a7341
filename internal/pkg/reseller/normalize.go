package reseller

import (
	"encoding/json"
	"strings"
)

// IsSuccess is the single success predicate for reseller responses. The reseller
// reports success inconsistently across endpoints, so any of these counts:
//   - "status" exactly "success"
//   - "Status" (any casing of the value) equal to "success" or "successful"
//   - "message" or "api_response" mentioning success, but not "unsuccessful"
//
// Anything that does not decode as a JSON object is a failure.
func IsSuccess(body []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}

	if stringField(fields, "status") == "success" {
		return true
	}

	switch strings.ToLower(stringField(fields, "Status")) {
	case "success", "successful":
		return true
	}

	for _, key := range []string{"message", "api_response"} {
		msg := strings.ToLower(stringField(fields, key))
		if strings.Contains(msg, "success") && !strings.Contains(msg, "unsuccess") {
			return true
		}
	}
	return false
}

// Message extracts the most descriptive free-text field of a response.
func Message(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, key := range []string{"api_response", "message", "error", "detail", "Status", "status"} {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

package remoteaction

import (
	"bytes"
	"encoding/json"
)

// Truthy reports whether resp carries a usable payload. Absent, null, false,
// zero and empty-string payloads are falsy; objects and arrays are truthy even
// when empty, matching how the desk client evaluates r.message.
func Truthy(resp Response) bool {
	if resp.Err != nil {
		return false
	}
	raw := bytes.TrimSpace(resp.Message)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

// MessageString decodes the payload as a JSON string. Non-string payloads are
// returned as their raw JSON text.
func (r Response) MessageString() string {
	raw := bytes.TrimSpace(r.Message)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Reason describes why a response resolved the way it did. It is only used for
// logs; callers see the same Failed outcome either way.
func (r Response) Reason() string {
	switch {
	case r.Err != nil:
		return "transport"
	case len(bytes.TrimSpace(r.Message)) == 0:
		return "empty"
	case Truthy(r):
		return "ok"
	default:
		return "falsy"
	}
}

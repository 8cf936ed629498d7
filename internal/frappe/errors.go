package frappe

import (
	"encoding/json"
	"fmt"
	"strings"
)

type envelope struct {
	Message        json.RawMessage `json:"message"`
	ExcType        string          `json:"exc_type"`
	Exception      string          `json:"exception"`
	ServerMessages string          `json:"_server_messages"`
}

// Error reports a non-2xx status or a server-side exception raised by the site.
type Error struct {
	Status         int
	ExcType        string
	Exception      string
	ServerMessages []string
}

func newError(status int, env envelope, serverMessages []string) *Error {
	return &Error{
		Status:         status,
		ExcType:        env.ExcType,
		Exception:      env.Exception,
		ServerMessages: serverMessages,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frappe: status %d", e.Status)
	if e.ExcType != "" {
		fmt.Fprintf(&b, " %s", e.ExcType)
	}
	if len(e.ServerMessages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.ServerMessages, "; "))
	} else if e.Exception != "" {
		fmt.Fprintf(&b, ": %s", e.Exception)
	}
	return b.String()
}

// decodeServerMessages unpacks the doubly encoded _server_messages field: a
// JSON array of JSON-encoded message objects (or bare strings).
func decodeServerMessages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{raw}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(item), &msg); err == nil && msg.Message != "" {
			out = append(out, msg.Message)
			continue
		}
		out = append(out, item)
	}
	return out
}

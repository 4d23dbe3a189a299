package notifiers

import (
	"encoding/json"
	"time"
)

// Event represents the payload delivered downstream for one tool invocation.
type Event struct {
	Tool           string          `json:"tool"`
	Args           map[string]any  `json:"args,omitempty"`
	OK             bool            `json:"ok"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
	Error          string          `json:"error,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	DurationMS     int64           `json:"duration_ms"`
	EmittedAt      time.Time       `json:"emitted_at"`
}

// NewEvent constructs an Event for the given tool outcome.
func NewEvent(tool string, args map[string]any, result json.RawMessage, errText string) Event {
	return Event{
		Tool:      tool,
		Args:      args,
		OK:        errText == "",
		Error:     errText,
		Result:    result,
		EmittedAt: time.Now().UTC(),
	}
}

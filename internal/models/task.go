package models

import (
	"encoding/json"
	"fmt"
)

// TaskCompletedPayload is the body of a task-completed event.
type TaskCompletedPayload struct {
	Msg      *string `json:"msg,omitempty"`
	ExitCode *int64  `json:"exit_code,omitempty"`
}

// ParseTaskCompletedPayload decodes a task-completed event body.
// An empty body is a completed task without a message.
func ParseTaskCompletedPayload(data []byte) (TaskCompletedPayload, error) {
	var p TaskCompletedPayload
	if len(data) == 0 || string(data) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return TaskCompletedPayload{}, fmt.Errorf("invalid task-completed payload: %w", err)
	}
	return p, nil
}

// Message returns the message text, or "" when absent.
func (p TaskCompletedPayload) Message() string {
	if p.Msg == nil {
		return ""
	}
	return *p.Msg
}

// Killed reports whether the task process was terminated by a signal rather
// than finishing on its own.
func (p TaskCompletedPayload) Killed() bool {
	return p.ExitCode != nil && IsSignalTermination(*p.ExitCode)
}

package server

import (
	"encoding/json"

	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// Frame types exchanged with the UI over the WebSocket.
const (
	// Server to UI.
	FrameEvent         = "event"
	FrameCommand       = "command"
	FrameCloseResponse = "close-response"

	// UI to server. FrameEvent is accepted in this direction too.
	FrameState          = "state"
	FrameCloseRequested = "close-requested"
)

// Window commands carried in command frames.
const (
	CommandShow         = "show"
	CommandHide         = "hide"
	CommandUnminimize   = "unminimize"
	CommandFocus        = "focus"
	CommandSetPlacement = "set-placement"
)

// Frame is a single WebSocket message.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WindowState is the payload of a state frame.
type WindowState struct {
	Visible   bool                    `json:"visible"`
	Minimized bool                    `json:"minimized"`
	Placement *models.WindowPlacement `json:"placement,omitempty"`
}

// CloseResponse is the payload of a close-response frame.
type CloseResponse struct {
	Allow bool `json:"allow"`
}

func eventFrame(e events.Event) Frame {
	return Frame{Type: FrameEvent, Name: string(e.Name), Payload: e.Payload}
}

package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/framewm/internal/manager"
)

// CommandType identifies an IPC command.
type CommandType string

const (
	CommandSplitH      CommandType = "SPLIT_H"
	CommandSplitV      CommandType = "SPLIT_V"
	CommandCloseFrame  CommandType = "CLOSE_FRAME"
	CommandNavigate    CommandType = "NAVIGATE"
	CommandMoveWindow  CommandType = "MOVE_WINDOW"
	CommandCycleWindow CommandType = "CYCLE_WINDOW"
	CommandShiftWindow CommandType = "SHIFT_WINDOW"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandReload      CommandType = "RELOAD"
)

// Request is a command from client to daemon, one JSON object per line.
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a response from daemon to client.
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// DirectionPayload carries the direction for NAVIGATE and MOVE_WINDOW.
type DirectionPayload struct {
	Direction string `json:"direction"` // "left", "right", "up", "down"
}

// CyclePayload carries the cycle direction for CYCLE_WINDOW.
type CyclePayload struct {
	Direction string `json:"direction"` // "forward" or "backward"
}

// ShiftPayload carries the stack offset for SHIFT_WINDOW.
type ShiftPayload struct {
	Delta int `json:"delta"`
}

// StatusData reports daemon state for GET_STATUS.
type StatusData struct {
	Version        string           `json:"version"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	CurrentDesktop int              `json:"current_desktop"`
	Desktops       []int            `json:"desktops"`
	Layout         manager.Snapshot `json:"layout"`
}

// NewOKResponse creates a success response with optional data.
func NewOKResponse(data interface{}) (*Response, error) {
	resp := &Response{Status: "OK"}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		resp.Data = jsonData
	}

	return resp, nil
}

// NewErrorResponse creates an error response.
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a JSON request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	if req.Command == "" {
		return nil, fmt.Errorf("missing command field")
	}

	return &req, nil
}

// Marshal serializes a response to JSON with a trailing newline.
func (r *Response) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return append(data, '\n'), nil
}

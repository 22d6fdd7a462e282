package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/framewm/internal/runtimepath"
)

// Client talks to the daemon over its unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response.
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) sendSimple(cmd CommandType) error {
	_, err := c.sendRequest(&Request{Command: cmd})
	return err
}

func (c *Client) sendWithPayload(cmd CommandType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = c.sendRequest(&Request{Command: cmd, Payload: data})
	return err
}

// SplitHorizontal splits the active frame into top/bottom halves.
func (c *Client) SplitHorizontal() error {
	return c.sendSimple(CommandSplitH)
}

// SplitVertical splits the active frame into left/right halves.
func (c *Client) SplitVertical() error {
	return c.sendSimple(CommandSplitV)
}

// CloseFrame closes the active frame.
func (c *Client) CloseFrame() error {
	return c.sendSimple(CommandCloseFrame)
}

// Navigate moves the active frame pointer. Direction is one of
// "left", "right", "up", "down".
func (c *Client) Navigate(direction string) error {
	return c.sendWithPayload(CommandNavigate, DirectionPayload{Direction: direction})
}

// MoveWindow moves the active window to the neighboring frame.
func (c *Client) MoveWindow(direction string) error {
	return c.sendWithPayload(CommandMoveWindow, DirectionPayload{Direction: direction})
}

// CycleWindow cycles the active frame's window stack.
// Direction is "forward" or "backward".
func (c *Client) CycleWindow(direction string) error {
	return c.sendWithPayload(CommandCycleWindow, CyclePayload{Direction: direction})
}

// ShiftWindow reorders the active window within its stack.
func (c *Client) ShiftWindow(delta int) error {
	return c.sendWithPayload(CommandShiftWindow, ShiftPayload{Delta: delta})
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload() error {
	return c.sendSimple(CommandReload)
}

// GetStatus retrieves daemon status.
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// Ping checks if the daemon is responding.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}

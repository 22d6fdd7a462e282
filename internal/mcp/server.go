package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/framewm/internal/ipc"
)

const (
	ServerName    = "framewm"
	ServerVersion = "0.1.0"
)

// daemon is the slice of the IPC client the tools need. Tests swap in a
// fake so no running daemon is required.
type daemon interface {
	SplitHorizontal() error
	SplitVertical() error
	CloseFrame() error
	Navigate(direction string) error
	MoveWindow(direction string) error
	CycleWindow(direction string) error
	Reload() error
	GetStatus() (*ipc.StatusData, error)
}

// Server exposes the daemon's layout operations as MCP tools over stdio,
// so an agent can drive the window layout it is running inside.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server talking to the daemon's IPC socket.
func NewServer(logger *slog.Logger) *Server {
	return newServer(ipc.NewClient(), logger)
}

func newServer(d daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: d,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "split_frame",
		Description: "Split the active frame in two. Orientation horizontal stacks the halves top/bottom; vertical places them side by side. The new (second) half becomes the active frame.",
	}, s.handleSplitFrame)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_frame",
		Description: "Close the active frame. Its windows are absorbed by the sibling subtree and the sibling's first leaf becomes active. The last remaining frame cannot be closed.",
	}, s.handleCloseFrame)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "navigate",
		Description: "Move the active-frame selection to the nearest frame in the given direction (left, right, up, down). No-op at the edge of the layout.",
	}, s.handleNavigate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move the active window into the neighboring frame in the given direction (left, right, up, down). The target frame becomes active.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cycle_window",
		Description: "Cycle which window of the active frame is on top. Direction forward (default) or backward.",
	}, s.handleCycleWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_layout",
		Description: "Report the current layout: every frame with its bounds and stacked windows, plus which frame and window are active.",
	}, s.handleGetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Ask the daemon to reload its configuration file.",
	}, s.handleReloadConfig)
}

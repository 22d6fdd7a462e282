package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/runtimepath"
	"github.com/1broseidon/framewm/internal/space"
)

// Server listens on a unix socket for daemon commands and routes layout
// operations to whichever space is currently visible.
type Server struct {
	socketPath string
	listener   net.Listener
	spaces     *space.SpaceManager
	logger     *slog.Logger
	version    string
	startTime  time.Time

	reloadChan chan struct{}

	mu           sync.Mutex
	shuttingDown bool
}

// NewServer creates an IPC server over the space manager.
func NewServer(spaces *space.SpaceManager, version string, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		socketPath: socketPath,
		spaces:     spaces,
		logger:     logger,
		version:    version,
		startTime:  time.Now(),
		reloadChan: make(chan struct{}, 1),
	}, nil
}

// ReloadRequests signals once per RELOAD command received.
func (s *Server) ReloadRequests() <-chan struct{} {
	return s.reloadChan
}

// Start begins listening for connections.
func (s *Server) Start() error {
	// Remove a stale socket from a previous run.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Owner-only: the socket accepts layout commands without auth.
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			done := s.shuttingDown
			s.mu.Unlock()
			if done {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection serves one request per connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		s.logger.Warn("failed to read request", "error", err)
		return
	}

	resp := s.dispatch(line)

	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) dispatch(line []byte) *Response {
	req, err := ParseRequest(line)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	s.logger.Debug("handling command", "command", string(req.Command))

	switch req.Command {
	case CommandGetStatus:
		return s.handleStatus()
	case CommandReload:
		select {
		case s.reloadChan <- struct{}{}:
		default:
		}
		resp, _ := NewOKResponse(nil)
		return resp
	}

	sp := s.spaces.Current()
	if sp == nil {
		return NewErrorResponse("no active space")
	}

	switch req.Command {
	case CommandSplitH:
		sp.Manager.SplitHorizontal()
	case CommandSplitV:
		sp.Manager.SplitVertical()
	case CommandCloseFrame:
		sp.Manager.CloseActiveFrame()
	case CommandNavigate:
		dir, err := parseDirection(req.Payload)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		sp.Manager.Navigate(dir)
	case CommandMoveWindow:
		dir, err := parseDirection(req.Payload)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		sp.Manager.MoveActiveWindow(dir)
	case CommandCycleWindow:
		forward, err := parseCycle(req.Payload)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		if forward {
			sp.Manager.CycleForward()
		} else {
			sp.Manager.CycleBackward()
		}
	case CommandShiftWindow:
		var payload ShiftPayload
		if len(req.Payload) > 0 {
			if err := unmarshalPayload(req.Payload, &payload); err != nil {
				return NewErrorResponse(err.Error())
			}
		}
		if payload.Delta == 0 {
			payload.Delta = 1
		}
		sp.Manager.ShiftActiveWindow(payload.Delta)
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleStatus() *Response {
	sp := s.spaces.Current()
	if sp == nil {
		return NewErrorResponse("no active space")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := sp.Manager.Snapshot(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to snapshot layout: %v", err))
	}

	desktops := s.spaces.Desktops()
	sort.Ints(desktops)

	status := StatusData{
		Version:        s.version,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		CurrentDesktop: sp.Desktop,
		Desktops:       desktops,
		Layout:         snap,
	}

	resp, err := NewOKResponse(status)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// Stop shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return err
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func parseDirection(raw []byte) (frame.Direction, error) {
	var payload DirectionPayload
	if err := unmarshalPayload(raw, &payload); err != nil {
		return 0, err
	}
	switch payload.Direction {
	case "left":
		return frame.Left, nil
	case "right":
		return frame.Right, nil
	case "up":
		return frame.Up, nil
	case "down":
		return frame.Down, nil
	default:
		return 0, fmt.Errorf("unknown direction: %q", payload.Direction)
	}
}

func parseCycle(raw []byte) (bool, error) {
	var payload CyclePayload
	if len(raw) == 0 {
		return true, nil
	}
	if err := unmarshalPayload(raw, &payload); err != nil {
		return false, err
	}
	switch payload.Direction {
	case "", "forward":
		return true, nil
	case "backward":
		return false, nil
	default:
		return false, fmt.Errorf("unknown cycle direction: %q", payload.Direction)
	}
}

func unmarshalPayload(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleSplitFrame(_ context.Context, _ *mcpsdk.CallToolRequest, args SplitFrameInput) (*mcpsdk.CallToolResult, SplitFrameOutput, error) {
	var err error
	switch args.Orientation {
	case "horizontal":
		err = s.daemon.SplitHorizontal()
	case "vertical":
		err = s.daemon.SplitVertical()
	default:
		return nil, SplitFrameOutput{}, fmt.Errorf("unknown orientation %q; use horizontal or vertical", args.Orientation)
	}
	if err != nil {
		return nil, SplitFrameOutput{}, err
	}
	s.logger.Debug("split frame", "orientation", args.Orientation)
	return nil, SplitFrameOutput{Orientation: args.Orientation}, nil
}

func (s *Server) handleCloseFrame(_ context.Context, _ *mcpsdk.CallToolRequest, _ CloseFrameInput) (*mcpsdk.CallToolResult, CloseFrameOutput, error) {
	if err := s.daemon.CloseFrame(); err != nil {
		return nil, CloseFrameOutput{}, err
	}
	return nil, CloseFrameOutput{Closed: true}, nil
}

func (s *Server) handleNavigate(_ context.Context, _ *mcpsdk.CallToolRequest, args NavigateInput) (*mcpsdk.CallToolResult, NavigateOutput, error) {
	if err := validDirection(args.Direction); err != nil {
		return nil, NavigateOutput{}, err
	}
	if err := s.daemon.Navigate(args.Direction); err != nil {
		return nil, NavigateOutput{}, err
	}
	return nil, NavigateOutput{Direction: args.Direction}, nil
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args NavigateInput) (*mcpsdk.CallToolResult, NavigateOutput, error) {
	if err := validDirection(args.Direction); err != nil {
		return nil, NavigateOutput{}, err
	}
	if err := s.daemon.MoveWindow(args.Direction); err != nil {
		return nil, NavigateOutput{}, err
	}
	return nil, NavigateOutput{Direction: args.Direction}, nil
}

func (s *Server) handleCycleWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CycleWindowInput) (*mcpsdk.CallToolResult, CycleWindowOutput, error) {
	direction := args.Direction
	if direction == "" {
		direction = "forward"
	}
	if direction != "forward" && direction != "backward" {
		return nil, CycleWindowOutput{}, fmt.Errorf("unknown direction %q; use forward or backward", direction)
	}
	if err := s.daemon.CycleWindow(direction); err != nil {
		return nil, CycleWindowOutput{}, err
	}
	return nil, CycleWindowOutput{Direction: direction}, nil
}

func (s *Server) handleGetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetLayoutInput) (*mcpsdk.CallToolResult, GetLayoutOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetLayoutOutput{}, err
	}

	out := GetLayoutOutput{
		Version:        status.Version,
		UptimeSeconds:  status.UptimeSeconds,
		CurrentDesktop: status.CurrentDesktop,
		Desktops:       status.Desktops,
	}
	for _, f := range status.Layout.Frames {
		lf := LayoutFrame{
			ID:     f.ID,
			X:      f.Bounds.X,
			Y:      f.Bounds.Y,
			Width:  f.Bounds.Width,
			Height: f.Bounds.Height,
			Active: f.ID == status.Layout.ActiveFrame,
		}
		for _, w := range f.Windows {
			lf.Windows = append(lf.Windows, LayoutWindow{
				Number: w.Number,
				PID:    w.PID,
				Active: w.Active,
			})
		}
		out.Frames = append(out.Frames, lf)
	}
	return nil, out, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadConfigInput) (*mcpsdk.CallToolResult, ReloadConfigOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ReloadConfigOutput{}, err
	}
	return nil, ReloadConfigOutput{Reloaded: true}, nil
}

func validDirection(d string) error {
	switch d {
	case "left", "right", "up", "down":
		return nil
	default:
		return fmt.Errorf("unknown direction %q; use left, right, up or down", d)
	}
}

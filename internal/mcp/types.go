package mcp

// SplitFrameInput is the input for the split_frame tool.
type SplitFrameInput struct {
	Orientation string `json:"orientation" jsonschema:"required,Split orientation: horizontal stacks top/bottom, vertical places side by side"`
}

// SplitFrameOutput is the output for the split_frame tool.
type SplitFrameOutput struct {
	Orientation string `json:"orientation"`
}

// CloseFrameInput is the input for the close_frame tool.
type CloseFrameInput struct{}

// CloseFrameOutput is the output for the close_frame tool.
type CloseFrameOutput struct {
	Closed bool `json:"closed"`
}

// NavigateInput is the input for the navigate and move_window tools.
type NavigateInput struct {
	Direction string `json:"direction" jsonschema:"required,One of: left, right, up, down"`
}

// NavigateOutput is the output for the navigate and move_window tools.
type NavigateOutput struct {
	Direction string `json:"direction"`
}

// CycleWindowInput is the input for the cycle_window tool.
type CycleWindowInput struct {
	Direction string `json:"direction,omitempty" jsonschema:"Cycle direction: forward (default) or backward"`
}

// CycleWindowOutput is the output for the cycle_window tool.
type CycleWindowOutput struct {
	Direction string `json:"direction"`
}

// GetLayoutInput is the input for the get_layout tool.
type GetLayoutInput struct{}

// LayoutWindow describes one window in the layout report.
type LayoutWindow struct {
	Number uint32 `json:"number,omitempty"`
	PID    int    `json:"pid,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// LayoutFrame describes one frame in the layout report.
type LayoutFrame struct {
	ID      uint32         `json:"id"`
	X       int            `json:"x"`
	Y       int            `json:"y"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Active  bool           `json:"active,omitempty"`
	Windows []LayoutWindow `json:"windows,omitempty"`
}

// GetLayoutOutput is the output for the get_layout tool.
type GetLayoutOutput struct {
	Version        string        `json:"version"`
	UptimeSeconds  int64         `json:"uptime_seconds"`
	CurrentDesktop int           `json:"current_desktop"`
	Desktops       []int         `json:"desktops"`
	Frames         []LayoutFrame `json:"frames"`
}

// ReloadConfigInput is the input for the reload_config tool.
type ReloadConfigInput struct{}

// ReloadConfigOutput is the output for the reload_config tool.
type ReloadConfigOutput struct {
	Reloaded bool `json:"reloaded"`
}

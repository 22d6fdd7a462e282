package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/framewm/internal/config"
	"github.com/1broseidon/framewm/internal/discovery"
	"github.com/1broseidon/framewm/internal/hotkeys"
	"github.com/1broseidon/framewm/internal/ipc"
	"github.com/1broseidon/framewm/internal/logging"
	"github.com/1broseidon/framewm/internal/manager"
	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/space"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "split":
		os.Exit(runSplit(os.Args[2:]))
	case "close-frame":
		os.Exit(runCloseFrame(os.Args[2:]))
	case "navigate":
		os.Exit(runNavigate(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "cycle":
		os.Exit(runCycle(os.Args[2:]))
	case "shift":
		os.Exit(runShift(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "version":
		fmt.Println(version)
		os.Exit(0)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: framewm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the framewm daemon (foreground)")
	fmt.Fprintln(w, "  status              Show the current layout")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  split <orientation> Split the active frame (horizontal|vertical)")
	fmt.Fprintln(w, "  close-frame         Close the active frame")
	fmt.Fprintln(w, "  navigate <dir>      Select the neighboring frame (left|right|up|down)")
	fmt.Fprintln(w, "  move <dir>          Move the active window to the neighboring frame")
	fmt.Fprintln(w, "  cycle [direction]   Cycle the active frame's windows (forward|backward)")
	fmt.Fprintln(w, "  shift [-delta n]    Reorder the active window within its stack")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  reload              Ask the daemon to reload its config")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print the effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'framewm <command> --help' for command-specific options.")
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "config file path (default: ~/.config/framewm/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framewm daemon [-config path]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, closeLogs := logging.Setup(cfg)
	defer closeLogs()
	logger.Info("framewm daemon starting", "version", version,
		"poll_interval", cfg.PollIntervalDuration(), "gap", cfg.GapSize)

	refocus, err := manager.ParseRefocusPolicy(cfg.RefocusPolicy)
	if err != nil {
		logger.Error("invalid refocus policy", "error", err)
		return 1
	}

	backend, err := platform.NewX11Backend(cfg.Display, logger)
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer backend.Close()

	spaces := space.NewSpaceManager(space.Config{
		TitleHeight: cfg.TitleBarHeight,
		Manager: manager.Config{
			SettleDelay: cfg.SettleDelay(),
			GapSize:     cfg.GapSize,
			Refocus:     refocus,
			Logger:      logger,
		},
		Logger: logger,
	}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := spaces.Start(ctx); err != nil {
		logger.Error("failed to start space manager", "error", err)
		return 1
	}

	ipcServer, err := ipc.NewServer(spaces, version, logger)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	// Key grabs attach before the X event loop starts so registration and
	// dispatch never touch the connection concurrently.
	keys, err := hotkeys.NewHandler(backend, spaces, logger)
	if err != nil {
		logger.Warn("global hotkeys unavailable", "error", err)
	} else if err := keys.RegisterAll(cfg.Hotkeys); err != nil {
		logger.Error("failed to register hotkeys", "error", err)
		return 1
	}

	obs := discovery.NewObserver(backend.Events(), logger)
	poller := discovery.NewPoller(discovery.PollerConfig{
		Interval: cfg.PollIntervalDuration(),
		Logger:   logger,
	}, backend, spaces.Target)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return backend.Start(ctx) })
	g.Go(func() error { obs.Run(ctx); return nil })
	g.Go(func() error { discovery.RunBridge(ctx, obs, spaces.Target, logger); return nil })
	g.Go(func() error { spaces.Watch(ctx, obs); return nil })
	g.Go(func() error { poller.Run(ctx); return nil })

	reload := func() {
		newCfg, err := config.LoadFromPath(path)
		if err != nil {
			logger.Warn("config reload failed, keeping previous config", "error", err)
			return
		}
		applyReload(newCfg, keys, poller, logger)
	}

	watcher := config.NewWatcher(path, logger, func(newCfg *config.Config) {
		applyReload(newCfg, keys, poller, logger)
	})
	g.Go(func() error {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ipcServer.ReloadRequests():
				logger.Info("reload requested over IPC")
				reload()
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					reload()
				default:
					logger.Info("shutting down", "signal", sig.String())
					spaces.Close()
					cancel()
					return nil
				}
			}
		}
	})

	logger.Info("framewm daemon started")
	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		return 1
	}
	return 0
}

// applyReload pushes a validated new config into the running components.
// Display geometry and per-space settings stay fixed until restart; key
// bindings and the poll pace follow the file.
func applyReload(cfg *config.Config, keys *hotkeys.Handler, poller *discovery.Poller, logger *slog.Logger) {
	if keys != nil {
		keys.UnregisterAll()
		if err := keys.RegisterAll(cfg.Hotkeys); err != nil {
			logger.Warn("failed to re-register hotkeys after reload", "error", err)
		}
	}
	poller.SetInterval(cfg.PollIntervalDuration())
	poller.PollNow()
	logger.Info("config reloaded")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framewm status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the daemon's current layout via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("version:         %s\n", status.Version)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Printf("current_desktop: %d\n", status.CurrentDesktop)
	fmt.Printf("desktops:        %v\n", status.Desktops)
	fmt.Println()

	frames := status.Layout.Frames
	sort.Slice(frames, func(i, j int) bool { return frames[i].ID < frames[j].ID })
	for _, f := range frames {
		marker := " "
		if f.ID == status.Layout.ActiveFrame {
			marker = "*"
		}
		fmt.Printf("%s frame %d  %dx%d+%d+%d\n", marker, f.ID,
			f.Bounds.Width, f.Bounds.Height, f.Bounds.X, f.Bounds.Y)
		for _, w := range f.Windows {
			active := " "
			if w.Active {
				active = ">"
			}
			fmt.Printf("  %s window %d (pid %d)\n", active, w.Number, w.PID)
		}
	}
	return 0
}

func runSplit(args []string) int {
	if len(args) == 1 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: framewm split <horizontal|vertical>")
		return 0
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: framewm split <horizontal|vertical>")
		return 2
	}

	client := ipc.NewClient()
	var err error
	switch args[0] {
	case "horizontal":
		err = client.SplitHorizontal()
	case "vertical":
		err = client.SplitVertical()
	default:
		fmt.Fprintf(os.Stderr, "Unknown orientation: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: framewm split <horizontal|vertical>")
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCloseFrame(args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "Usage: framewm close-frame")
		return 2
	}
	if err := ipc.NewClient().CloseFrame(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runNavigate(args []string) int {
	dir, code := directionArg(args, "navigate")
	if code >= 0 {
		return code
	}
	if err := ipc.NewClient().Navigate(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMove(args []string) int {
	dir, code := directionArg(args, "move")
	if code >= 0 {
		return code
	}
	if err := ipc.NewClient().MoveWindow(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// directionArg validates the single direction argument of navigate/move.
// Returns code -1 when parsing succeeded.
func directionArg(args []string, cmd string) (string, int) {
	usage := func(w io.Writer) {
		fmt.Fprintf(w, "Usage: framewm %s <left|right|up|down>\n", cmd)
	}
	if len(args) != 1 {
		usage(os.Stderr)
		return "", 2
	}
	switch args[0] {
	case "left", "right", "up", "down":
		return args[0], -1
	case "help", "-h", "--help":
		usage(os.Stdout)
		return "", 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown direction: %s\n", args[0])
		usage(os.Stderr)
		return "", 2
	}
}

func runCycle(args []string) int {
	direction := "forward"
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Usage: framewm cycle [forward|backward]")
		return 2
	}
	if len(args) == 1 {
		switch args[0] {
		case "forward", "backward":
			direction = args[0]
		case "help", "-h", "--help":
			fmt.Fprintln(os.Stdout, "Usage: framewm cycle [forward|backward]")
			return 0
		default:
			fmt.Fprintf(os.Stderr, "Unknown direction: %s\n", args[0])
			return 2
		}
	}
	if err := ipc.NewClient().CycleWindow(direction); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runShift(args []string) int {
	fs := flag.NewFlagSet("shift", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	delta := fs.Int("delta", 1, "stack positions to move (negative for backward)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: framewm shift [-delta n]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if err := ipc.NewClient().ShiftWindow(*delta); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "Usage: framewm reload")
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("reload requested")
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: framewm config <validate|print> [-config path]")
		return 2
	}

	sub := args[0]
	fs := flag.NewFlagSet("config "+sub, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "config file path (default: ~/.config/framewm/config.yaml)")
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	cfg, err := config.LoadFromPath(path)

	switch sub {
	case "validate":
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
			return 1
		}
		fmt.Println("valid")
		return 0
	case "print":
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		printConfig(cfg)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", sub)
		fmt.Fprintln(os.Stderr, "Usage: framewm config <validate|print> [-config path]")
		return 2
	}
}

func printConfig(cfg *config.Config) {
	fmt.Printf("poll_interval:    %d\n", cfg.PollInterval)
	fmt.Printf("settle_delay_ms:  %d\n", cfg.SettleDelayMS)
	fmt.Printf("title_bar_height: %d\n", cfg.TitleBarHeight)
	fmt.Printf("gap_size:         %d\n", cfg.GapSize)
	fmt.Printf("refocus_policy:   %s\n", cfg.RefocusPolicy)
	fmt.Printf("log_level:        %s\n", cfg.LogLevel)

	actions := make([]string, 0, len(cfg.Hotkeys))
	for action := range cfg.Hotkeys {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	fmt.Println("hotkeys:")
	for _, action := range actions {
		fmt.Printf("  %-18s %s\n", action+":", cfg.Hotkeys[action])
	}
}

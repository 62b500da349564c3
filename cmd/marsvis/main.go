package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/san-kum/marsvis/internal/config"
	"github.com/san-kum/marsvis/internal/ingest"
	"github.com/san-kum/marsvis/internal/logging"
	"github.com/san-kum/marsvis/internal/pacing"
	"github.com/san-kum/marsvis/internal/scheduler"
	"github.com/san-kum/marsvis/internal/state"
	"github.com/san-kum/marsvis/internal/viz"
)

var (
	configFile    string
	preset        string
	address       string
	backoff       time.Duration
	renderRate    int
	pacingMs      int
	maxGeometries int
	headless      bool
	logLevel      string
	logFile       string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "marsvis",
		Short:        "live viewer for a running simulation",
		SilenceUsage: true,
		RunE:         runViewer,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (yaml)")
	flags.StringVar(&preset, "preset", "", "use preset configuration")
	flags.StringVar(&address, "addr", config.DefaultAddress, "simulation websocket address")
	flags.DurationVar(&backoff, "backoff", config.DefaultBackoff, "wait between connection attempts")
	flags.IntVar(&renderRate, "fps", pacing.DefaultRenderRate, "render rate in frames per second")
	flags.IntVar(&pacingMs, "pacing", pacing.DefaultIngestPacing, "initial simulation pacing in ms")
	flags.IntVar(&maxGeometries, "max-geometries", state.DefaultMaxGeometries, "geometries kept per kind, 0 for unbounded")
	flags.BoolVar(&headless, "headless", false, "log frame summaries instead of drawing")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, error)")
	flags.StringVar(&logFile, "log-file", "", "log file (TUI default: "+config.DefaultTUILogFile+")")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "presets:")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(out, "  %-8s %4d fps  %4d ms pacing  backoff %s\n",
					name, p.RenderRate, p.PacingMs, p.ReconnectBackoff.Std())
			}
			return nil
		},
	}

	rootCmd.AddCommand(presetsCmd, newProbeCmd(), newCaptureCmd())
	return rootCmd
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Address = address
	}
	if flags.Changed("backoff") {
		cfg.ReconnectBackoff = config.Duration(backoff)
	}
	if flags.Changed("fps") {
		cfg.RenderRate = renderRate
	}
	if flags.Changed("pacing") {
		cfg.PacingMs = pacingMs
	}
	if flags.Changed("max-geometries") {
		cfg.MaxGeometries = maxGeometries
	}
	if flags.Changed("headless") {
		cfg.Headless = headless
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is the wiring shared by every command that talks to a
// simulation.
type session struct {
	log    logr.Logger
	closer io.Closer
	store  *state.Store
	client *ingest.Client
}

func openSession(cfg *config.Config) (*session, error) {
	log, closer, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.LogFile()})
	if err != nil {
		return nil, err
	}
	store := state.New(state.Options{MaxGeometries: cfg.MaxGeometries})
	client, err := ingest.New(store, ingest.Options{
		Address: cfg.Address,
		Backoff: cfg.ReconnectBackoff.Std(),
		Log:     log.WithName("ingest"),
	})
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &session{log: log, closer: closer, store: store, client: client}, nil
}

func (s *session) Close() error {
	_ = s.client.Close()
	return s.closer.Close()
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	pc := pacing.New(cfg.RenderRate, cfg.PacingMs)
	opts := scheduler.Options{Log: sess.log.WithName("scheduler")}
	sess.log.Info("starting viewer", "addr", cfg.Address, "fps", pc.RenderRate(), "pacingMs", pc.CurrentIngestPacing(), "headless", cfg.Headless)

	if cfg.Headless {
		r := viz.NewLogRenderer(sess.log.WithName("frames"), viz.DefaultLogInterval)
		return scheduler.New(sess.store, sess.client, pc, r, opts).Run(ctx)
	}

	relay := &controlRelay{}
	prog := viz.NewProgram(relay, cfg.Address, tea.WithAltScreen(), tea.WithContext(ctx))
	sched := scheduler.New(sess.store, sess.client, pc, prog, opts)
	relay.Controls = sched

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		err := sched.Run(runCtx)
		cancel()
		errCh <- err
	}()
	go func() {
		<-runCtx.Done()
		prog.Quit()
	}()

	uiErr := prog.Run()
	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	if uiErr != nil && ctx.Err() == nil {
		return uiErr
	}
	return nil
}

// controlRelay lets the UI be built before the scheduler it controls.
type controlRelay struct {
	viz.Controls
}

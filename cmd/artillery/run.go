package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/dispatcher"
	"github.com/OCAP2/artillery/internal/handlers"
	"github.com/OCAP2/artillery/internal/influx"
	"github.com/OCAP2/artillery/internal/logging"
	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/monitor"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/internal/turn"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/OCAP2/artillery/pkg/streaming"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// shutdownSignals stop a running match and flush its recording.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func runCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("run", stderr)
	fs.Int64("seed", 0, "layout seed")
	fs.Int("planets", 0, "number of planets")
	fs.Int("teams", 0, "number of teams")
	fs.String("name", "", "match name")
	fs.Uint("turns", 0, "stop after this many turns")
	fs.Bool("realtime", false, "pace frames at --fps instead of running as fast as possible")
	fs.Int("fps", 60, "frames per second")
	fs.String("storage", "memory", "memory, sqlite or postgres")
	fs.String("status-file", "", "file rewritten with the status report every second, as JSON when it ends in .json")
	stream := fs.String("stream", "", "write a msgpack frame stream to this file, - for stdout")
	interactive := fs.BoolP("interactive", "i", false, "read :ARM:, :DISARM:, :PREVIEW:, :COMMIT: and :STATUS: commands from stdin")

	if err := bind(fs, commonKeys); err != nil {
		return err
	}
	if err := bind(fs, map[string]string{
		"seed":        "match.seed",
		"planets":     "match.planets",
		"teams":       "match.teams",
		"name":        "match.name",
		"turns":       "run.turns",
		"realtime":    "run.realtime",
		"fps":         "run.fps",
		"storage":     "storage.type",
		"status-file": "run.statusFile",
	}); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	a, err := setup(common.configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := config.GetMatchConfig()
	if err != nil {
		return err
	}
	runCfg := config.GetRunConfig()
	if runCfg.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive", errUsage)
	}
	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return err
	}

	backend, err := newBackend(storageCfg, a.DBLogger)
	if err != nil {
		return err
	}
	recorders := storage.Multi{backend, influx.NewManager(config.GetInfluxConfig(), a.DBLogger)}

	out := &syncWriter{w: stdout}
	var frames *streaming.Writer
	if *stream != "" {
		w, closeStream, err := openStream(*stream, out)
		if err != nil {
			return err
		}
		defer closeStream()
		frames = streaming.NewWriter(w)
		recorders = append(recorders, frames)
	}

	if err := recorders.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := recorders.Close(); err != nil {
			a.Logger.Error("Failed to close storage", "error", err)
		}
	}()

	m, err := match.New(cfg, match.Dependencies{
		Logger:   a.Logger,
		Recorder: recorders,
		Session:  a.Session,
	})
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.DBLogger))
	if err != nil {
		return err
	}
	mon := monitor.NewService(monitor.Dependencies{
		Match:      m,
		Session:    a.Session,
		LogManager: a.SlogManager,
		Pending:    d.Pending,
		StatusFile: runCfg.StatusFile,
		DB:         backendDB(backend),
	})
	handlers.NewService(handlers.Dependencies{Match: m, Monitor: mon, Logger: a.Logger}).Register(d)

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if *interactive {
		go readCommands(ctx, stdin, d, out, a.Logger)
	}
	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	loop := &frameLoop{
		match:      m,
		dispatcher: d,
		monitor:    mon,
		frames:     frames,
		step:       time.Second / time.Duration(runCfg.FPS),
		fps:        runCfg.FPS,
		maxTurns:   runCfg.Turns,
		autoCommit: !*interactive || allAI(cfg),
		logger:     a.Logger,
	}
	if runCfg.Realtime {
		loop.limiter = rate.NewLimiter(rate.Limit(runCfg.FPS), 1)
	}
	runErr := loop.Run(ctx)

	if err := m.Close(); err != nil {
		a.Logger.Error("Failed to end match", "error", err)
	}
	summary := io.Writer(out)
	if *stream == "-" {
		summary = stderr
	}
	printSummary(summary, m, backend)
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// frameLoop owns the match. Every call into it happens on the goroutine running Run.
type frameLoop struct {
	match      *match.Match
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
	frames     *streaming.Writer
	limiter    *rate.Limiter
	step       time.Duration
	fps        int
	maxTurns   uint
	autoCommit bool
	logger     *slog.Logger
}

// Run steps the match until it is won, the turn limit passes or ctx is cancelled.
func (l *frameLoop) Run(ctx context.Context) error {
	for frame := 0; ; frame++ {
		if l.match.Over() || (l.maxTurns > 0 && l.match.Turn() > l.maxTurns) {
			return nil
		}
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		l.dispatcher.Drain()
		if l.autoCommit && l.match.Phase() == turn.Planning {
			if err := l.match.CommitTurn(); err != nil && !errors.Is(err, match.ErrMatchOver) {
				return err
			}
		}
		l.match.Update(l.step)
		if l.limiter == nil {
			// nothing to watch, skip the resolution pause
			l.match.Flush()
		}

		if l.frames != nil {
			if err := l.frames.WriteFrame(l.match.Snapshot()); err != nil {
				return fmt.Errorf("stream frame: %w", err)
			}
		}
		if frame%l.fps == 0 {
			l.monitor.Refresh()
		}
	}
}

func allAI(cfg match.Config) bool {
	ai := make(map[core.TeamID]bool, len(cfg.AITeams))
	for _, t := range cfg.AITeams {
		ai[t] = true
	}
	for t := 1; t <= cfg.Teams; t++ {
		if !ai[core.TeamID(t)] {
			return false
		}
	}
	return true
}

// readCommands feeds stdin lines to the dispatcher. Replies of deferred commands are
// printed when the frame loop drains them.
func readCommands(ctx context.Context, r io.Reader, d *dispatcher.Dispatcher, out io.Writer, log *slog.Logger) {
	reply := func(result any, err error) {
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return
		}
		printResult(out, result)
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		if _, err := d.DispatchLine(line, reply); err != nil {
			log.Debug("Rejected command", "line", line, "error", err)
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func printResult(out io.Writer, result any) {
	switch v := result.(type) {
	case monitor.Status:
		for _, line := range v.Lines() {
			fmt.Fprintln(out, line)
		}
	case nil:
		fmt.Fprintln(out, "ok")
	default:
		fmt.Fprintln(out, v)
	}
}

func printSummary(out io.Writer, m *match.Match, backend storage.Backend) {
	info := m.Info()
	fmt.Fprintf(out, "match %d %q seed=%d turns=%d\n", info.ID, info.Name, info.Seed, m.Turn())
	if winner, ok := m.Winner(); ok {
		fmt.Fprintf(out, "winner: team %d\n", winner)
	} else {
		fmt.Fprintln(out, "no winner")
	}
	for team, n := range m.AliveByTeam() {
		fmt.Fprintf(out, "  team %d: %d mounts\n", team, n)
	}
	if e, ok := backend.(storage.Exporter); ok && e.ExportedFilePath() != "" {
		fmt.Fprintf(out, "recording: %s\n", e.ExportedFilePath())
	}
}

// backendDB returns the database behind a gorm-based backend, nil otherwise.
func backendDB(b storage.Backend) *gorm.DB {
	if g, ok := b.(interface{ DB() *gorm.DB }); ok {
		return g.DB()
	}
	return nil
}

func openStream(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stream file: %w", err)
	}
	bw := bufio.NewWriter(f)
	return bw, func() {
		bw.Flush()
		f.Close()
	}, nil
}

// syncWriter serializes writes from the command reader and the frame loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Command artillery runs headless gravity artillery matches, records them and replays
// recorded layouts from their seed.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/logging"
	intOtel "github.com/OCAP2/artillery/internal/otel"
	"github.com/OCAP2/artillery/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "artillery"
)

// app holds everything set up before a command runs.
type app struct {
	SessionStart time.Time
	LogFilePath  string
	LogFile      *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager
	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger
	// DBLogger is used by storage, influx and the dispatcher.
	DBLogger zerolog.Logger

	OTelProvider *intOtel.Provider
	Session      *session.Context
	gelfWriter   *gelf.Writer
}

// setup loads the config from configDir and wires logging. Flags must already be bound.
func setup(configDir string) (*app, error) {
	a := &app{
		SessionStart: time.Now(),
		SlogManager:  logging.NewSlogManager(),
		Session:      session.NewContext(),
	}

	configErr := config.Load(configDir)

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	a.LogFilePath = logging.LogFilePath(logsDir, AppName, a.SessionStart)
	if _, err := os.Stat(a.LogFilePath); err == nil {
		os.Rename(a.LogFilePath, a.LogFilePath+".old")
	}
	f, err := os.OpenFile(a.LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", a.LogFilePath, err)
	}
	a.LogFile = f

	level := viper.GetString("logLevel")

	otelCfg, err := config.GetOTelConfig()
	if err != nil {
		return nil, err
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		a.OTelProvider, err = intOtel.New(otelCfg, f)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel provider: %w", err)
		}
		otelLogProvider = a.OTelProvider.LoggerProvider()
	}

	opts := []logging.SetupOption{logging.WithContext(a.Session.Attrs)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		a.gelfWriter, err = gelf.NewWriter(gl.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to create GELF writer for %s: %w", gl.Address, err)
		}
		host, _ := os.Hostname()
		opts = append(opts, logging.WithHandler(logging.NewGELFHandler(a.gelfWriter, host, logging.ParseLevel(level))))
	}

	a.SlogManager.Setup(f, level, otelLogProvider, opts...)
	a.Logger = a.SlogManager.Logger()
	a.DBLogger = newZerolog(f, level)

	if configErr != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.Logger.Info("Loaded config", "dir", configDir)
	}
	a.Logger.Info("Starting", "app", AppName, "version", Version, "build", BuildDate)
	return a, nil
}

func newZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("app", AppName).Logger()
}

// Close flushes telemetry and closes the log sinks.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.SlogManager.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "log flush failed:", err)
	}
	if a.OTelProvider != nil {
		a.OTelProvider.Shutdown(ctx)
	}
	if a.gelfWriter != nil {
		a.gelfWriter.Close()
	}
	if a.LogFile != nil {
		a.LogFile.Close()
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

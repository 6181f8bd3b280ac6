// Package logging configures structured run logging: a slog.Logger
// over stdout (and optionally a rotated daily file), plus a helper for
// logging a confirmed mover as a structured record.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"huntmover/internal/huntconfig"
	"huntmover/internal/mover"
)

// New returns a slog.Logger with the provided level string (info, debug, warn, error).
// format may be "json" or "text".
func New(level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Setup configures global logging with file output and rotation.
func Setup(cfg *huntconfig.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Logging.Level)

	if cfg.Logging.FileOutput {
		if err := os.MkdirAll(cfg.Logging.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
	}

	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if cfg.Logging.FileOutput {
		logFile := filepath.Join(cfg.Logging.LogDir, fmt.Sprintf("huntmover-%s.log",
			time.Now().Format("2006-01-02")))

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}

		writers = append(writers, file)

		currentLogPath := filepath.Join(cfg.Logging.LogDir, "huntmover-current.log")
		os.Remove(currentLogPath)
		if err := os.Symlink(filepath.Base(logFile), currentLogPath); err != nil {
			// Symlink failed, but continue - it's not critical
		}
	}

	multiWriter := io.MultiWriter(writers...)
	logger := log.New(multiWriter, "", log.LstdFlags)

	handler := &TraditionalHandler{
		logger: logger,
		level:  level,
	}

	slogLogger := slog.New(handler)
	slog.SetDefault(slogLogger)

	slogLogger.Info("huntmover logging initialized",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"file_output", cfg.Logging.FileOutput,
		"log_dir", cfg.Logging.LogDir,
	)

	return slogLogger, nil
}

// TraditionalHandler implements slog.Handler with traditional log formatting.
type TraditionalHandler struct {
	logger *log.Logger
	level  slog.Level
}

func (h *TraditionalHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TraditionalHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String()

	msg := r.Message
	attrs := make([]string, 0)

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	})

	if len(attrs) > 0 {
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(attrs, " "))
	}

	h.logger.Printf("[%s] %s", strings.ToUpper(level), msg)

	return nil
}

func (h *TraditionalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *TraditionalHandler) WithGroup(name string) slog.Handler {
	return h
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogRunStart logs the beginning of a sweep run.
func LogRunStart(logger *slog.Logger, runID string, groupSizes [3]int) {
	logger.Info("run started",
		"run_id", runID,
		"group_sizes", groupSizes,
	)
}

// LogRunComplete logs successful completion of a sweep run.
func LogRunComplete(logger *slog.Logger, runID string, duration time.Duration, moverCount int) {
	logger.Info("run completed",
		"run_id", runID,
		"duration_ms", duration.Milliseconds(),
		"duration_human", duration.String(),
		"movers", moverCount,
	)
}

// LogRunError logs a run failure.
func LogRunError(logger *slog.Logger, runID string, duration time.Duration, err error) {
	logger.Error("run failed",
		"run_id", runID,
		"duration_ms", duration.Milliseconds(),
		"error", err.Error(),
	)
}

// LogMover writes one tab-separated mover record: run timestamp,
// sequence, then per-object {x,y,obSize,tCount,SNR,flux} for each of
// the three objects, then motion, PA in degrees, errMid, score and a
// status string.
func LogMover(logger *slog.Logger, runTimestamp time.Time, sequence int, m mover.Mover, status string) {
	fields := []string{
		runTimestamp.UTC().Format(time.RFC3339),
		fmt.Sprintf("%d", sequence),
	}
	for _, o := range m.Objects {
		fields = append(fields,
			fmt.Sprintf("%.3f", o.Location.X),
			fmt.Sprintf("%.3f", o.Location.Y),
			fmt.Sprintf("%d", o.ObSize),
			fmt.Sprintf("%d", o.TCount),
			fmt.Sprintf("%.3f", o.SNR),
			fmt.Sprintf("%.3f", o.Flux),
		)
	}
	fields = append(fields,
		fmt.Sprintf("%.4f", m.Motion),
		fmt.Sprintf("%.3f", m.PA*180/math.Pi),
		fmt.Sprintf("%.3f", m.ErrMid),
		fmt.Sprintf("%.3f", m.Score),
		status,
	)
	logger.Info("mover " + strings.Join(fields, "\t"))
}

// Package logging sets up the process-wide structured logger.
//
// Unlike an interactive CLI, this binary's stdout is reserved for LSP
// Content-Length framing (or is a plain pipe in daemon mode), so there is no
// themed terminal encoder here: every sink is JSON, and the default sink is
// stderr. Per-child tsserver logs are tsserver's own, written via its
// --logFile argument under the configured log directory.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global structured logger. Safe to use before Initialize
	// runs: it starts as a no-op sink so early package-init code never
	// dereferences a nil logger.
	Logger *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Options configures Initialize.
type Options struct {
	// Verbose raises the level to Debug.
	Verbose bool
	// JSON is not consulted: Initialize always uses the JSON encoder,
	// whatever this field holds.
	JSON bool
}

// Initialize wires the global logger to stderr, JSON-encoded.
func Initialize(opts Options) error {
	if opts.Verbose {
		level.SetLevel(zap.DebugLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(os.Stderr),
		level,
	)

	Logger = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// With returns a child logger carrying the given structured fields.
func With(fields ...interface{}) *zap.SugaredLogger {
	return Logger.With(fields...)
}

package commands

import (
	"os"
	"strconv"
	"strings"
	"time"

	glspserver "github.com/tliron/glsp/server"

	"github.com/chojs23/ts-bridge/internal/bridge/provider"
	"github.com/chojs23/ts-bridge/internal/bridge/registry"
	"github.com/chojs23/ts-bridge/internal/bridge/session"
	"github.com/chojs23/ts-bridge/internal/logging"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// Environment analogues of the daemon flags, for editors that can only
// set variables on the spawned process.
const (
	envDaemon        = "TS_BRIDGE_DAEMON"
	envDaemonListen  = "TS_BRIDGE_DAEMON_LISTEN"
	envDaemonSocket  = "TS_BRIDGE_DAEMON_SOCKET"
	envDaemonIdleTTL = "TS_BRIDGE_DAEMON_IDLE_TTL"
)

// serverName labels glsp log output and the LSP serverInfo block.
const serverName = "ts-bridge"

// RunStdio serves a single LSP session over stdin/stdout, the default
// editor-spawned transport.
func RunStdio(debug bool) error {
	reg := registry.New(registry.Options{}, provider.Provider{}, logging.Logger)
	defer reg.Close()

	sess := session.New(logging.Logger, reg)
	server := glspserver.NewServer(sess.GLSPHandler(), serverName, debug)
	return server.RunStdio()
}

// fallbackEnv returns value, or the named environment variable when value
// is empty.
func fallbackEnv(value, envName string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envName)
}

// DaemonFromEnv reports whether TS_BRIDGE_DAEMON selects daemon mode.
func DaemonFromEnv() bool {
	switch strings.ToLower(os.Getenv(envDaemon)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// RunDaemonFromEnv runs the daemon configured purely from TS_BRIDGE_*
// environment variables.
func RunDaemonFromEnv() error {
	ttl, err := ParseIdleTTL(os.Getenv(envDaemonIdleTTL))
	if err != nil {
		return err
	}
	return runDaemonWith(os.Getenv(envDaemonListen), os.Getenv(envDaemonSocket), ttl)
}

// ParseIdleTTL parses the idle-TTL syntax shared by --idle-ttl and
// TS_BRIDGE_DAEMON_IDLE_TTL: bare seconds, a number with an s/m/h suffix,
// "off" to disable, or empty for the default.
func ParseIdleTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "":
		return defaultIdleTTL, nil
	case "off":
		return 0, nil
	}

	multiplier := time.Second
	switch {
	case strings.HasSuffix(raw, "h"):
		multiplier = time.Hour
		raw = strings.TrimSuffix(raw, "h")
	case strings.HasSuffix(raw, "m"):
		multiplier = time.Minute
		raw = strings.TrimSuffix(raw, "m")
	case strings.HasSuffix(raw, "s"):
		raw = strings.TrimSuffix(raw, "s")
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, terrors.Newf("invalid idle TTL %q: expected seconds, an s/m/h-suffixed number, or \"off\"", raw)
	}
	return time.Duration(n) * multiplier, nil
}

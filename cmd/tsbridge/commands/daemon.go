package commands

import (
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chojs23/ts-bridge/internal/bridge/provider"
	"github.com/chojs23/ts-bridge/internal/bridge/registry"
	"github.com/chojs23/ts-bridge/internal/bridge/session"
	"github.com/chojs23/ts-bridge/internal/logging"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// defaultIdleTTL is how long an unused project broker survives before the
// registry evicts it, when no explicit TTL is configured.
const defaultIdleTTL = 10 * time.Minute

// defaultListen binds loopback with an ephemeral port; the bound address
// is logged so clients can discover it.
const defaultListen = "127.0.0.1:0"

var (
	daemonListen  string
	daemonSocket  string
	daemonIdleTTL string
)

// DaemonCmd runs the shared daemon: one process, one project registry,
// a fresh LSP session per inbound connection.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve LSP sessions over TCP or a Unix socket",
	Long: `Run ts-bridge as a long-lived daemon.

Each inbound connection becomes an independent LSP session; sessions
whose workspace roots coincide share one tsserver pair through the
project registry. Idle workspaces are evicted after the configured TTL.

Flags fall back to TS_BRIDGE_DAEMON_LISTEN, TS_BRIDGE_DAEMON_SOCKET,
and TS_BRIDGE_DAEMON_IDLE_TTL when unset.`,
	RunE: runDaemon,
}

func init() {
	DaemonCmd.Flags().StringVar(&daemonListen, "listen", "", "TCP listen address (host:port); defaults to loopback with an ephemeral port")
	DaemonCmd.Flags().StringVar(&daemonSocket, "socket", "", "Unix domain socket path (takes precedence over --listen)")
	DaemonCmd.Flags().StringVar(&daemonIdleTTL, "idle-ttl", "", `Evict idle workspaces after this long (seconds, s/m/h suffix, or "off")`)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	listen := fallbackEnv(daemonListen, envDaemonListen)
	socket := fallbackEnv(daemonSocket, envDaemonSocket)

	ttl, err := ParseIdleTTL(fallbackEnv(daemonIdleTTL, envDaemonIdleTTL))
	if err != nil {
		return err
	}
	return runDaemonWith(listen, socket, ttl)
}

func runDaemonWith(listen, socket string, idleTTL time.Duration) error {
	reg := registry.New(registry.Options{IdleTTL: idleTTL}, provider.Provider{}, logging.Logger)
	defer reg.Close()

	listener, cleanup, err := daemonListener(listen, socket)
	if err != nil {
		return err
	}
	defer listener.Close()
	if cleanup != nil {
		defer cleanup()
	}

	logging.Logger.Infow("ts-bridge daemon listening",
		"network", listener.Addr().Network(),
		"address", listener.Addr().String(),
		"idle_ttl", idleTTL,
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return terrors.Wrap(err, "accept daemon connection")
		}
		go serveConnection(reg, conn)
	}
}

// daemonListener prefers the Unix socket when both are configured,
// matching the CLI surface's precedence.
func daemonListener(listen, socket string) (net.Listener, func(), error) {
	if socket != "" {
		// A stale socket file from a crashed daemon would fail the bind.
		_ = os.Remove(socket)
		l, err := net.Listen("unix", socket)
		if err != nil {
			return nil, nil, terrors.Wrapf(err, "listen on unix socket %s", socket)
		}
		return l, func() { _ = os.Remove(socket) }, nil
	}

	if listen == "" {
		listen = defaultListen
	}
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, nil, terrors.Wrapf(err, "listen on %s", listen)
	}
	return l, nil, nil
}

// serveConnection drives one LSP session over one accepted connection;
// the connection closing ends the session.
func serveConnection(reg *registry.Registry, conn net.Conn) {
	logging.Logger.Infow("daemon connection opened", "remote", conn.RemoteAddr().String())

	sess := session.New(logging.Logger, reg)
	server := glspserver.NewServer(sess.GLSPHandler(), serverName, false)
	server.ServeStream(conn, commonlog.GetLogger(serverName+".stream"))

	logging.Logger.Infow("daemon connection closed", "remote", conn.RemoteAddr().String())
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chojs23/ts-bridge/cmd/tsbridge/commands"
	"github.com/chojs23/ts-bridge/internal/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ts-bridge",
	Short: "LSP bridge exposing tsserver to editors",
	Long: `ts-bridge - Language Server Protocol bridge for TypeScript/JavaScript.

Multiplexes one or two long-running tsserver child processes per workspace
behind a standard LSP endpoint: requests are translated into tsserver's
newline-framed command dialect, diagnostics events are aggregated into
publishDiagnostics, and multiple editor sessions sharing a workspace share
one tsserver pair.

Run with no arguments to serve LSP over stdio (the transport editors
spawn). Use the daemon subcommand to listen on TCP or a Unix socket and
serve a fresh session per connection.

Examples:
  ts-bridge                                  # stdio server
  ts-bridge daemon --listen 127.0.0.1:7300   # TCP daemon
  ts-bridge daemon --socket /tmp/tsb.sock    # Unix-socket daemon
  ts-bridge version                          # build information`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logging.Options{Verbose: verbose}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		// glsp's server package logs through commonlog; route it to the
		// same stderr stream at a matching level.
		commonlogVerbosity := 0
		if verbose {
			commonlogVerbosity = 2
		}
		commonlog.Configure(commonlogVerbosity, nil)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// TS_BRIDGE_DAEMON lets editors that cannot pass subcommands
		// select daemon mode from the environment.
		if commands.DaemonFromEnv() {
			return commands.RunDaemonFromEnv()
		}
		return commands.RunStdio(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

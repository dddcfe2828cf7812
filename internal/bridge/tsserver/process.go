// Package tsserver owns one spawned tsserver --stdio child process: its
// stdin writer, its reader goroutine, its cancellation-sentinel directory,
// and the channel of parsed response/event frames it produces.
//
// The wire dialect is asymmetric: tsserver's stdin takes newline-delimited
// JSON commands while its stdout emits Content-Length-framed frames.
package tsserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// LogVerbosity mirrors tsserver's --logVerbosity argument values.
type LogVerbosity string

const (
	LogVerbosityTerse       LogVerbosity = "terse"
	LogVerbosityNormal      LogVerbosity = "normal"
	LogVerbosityRequestTime LogVerbosity = "requestTime"
	LogVerbosityVerbose     LogVerbosity = "verbose"
)

// LaunchOptions configures how a tsserver child is spawned, carried over
// from the broker's resolved workspace configuration.
type LaunchOptions struct {
	NodePath        string
	ScriptPath      string
	Locale          string
	LogDirectory    string
	LogVerbosity    LogVerbosity
	MaxOldSpaceSize int
	GlobalPlugins   []string
	PluginProbeDirs []string
	ExtraArgs       []string
}

// roleEnvVar names the environment variable passed to the child naming its
// role, matching the original's TS_LSP_RS_SERVER_KIND but namespaced under
// this bridge's own TS_BRIDGE_ prefix.
const roleEnvVar = "TS_BRIDGE_SERVER_KIND"

// Process owns one live tsserver child.
type Process struct {
	Kind rpc.ServerKind

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	writeMu   sync.Mutex
	responses chan map[string]interface{}
	cancelDir string
	log       *zap.SugaredLogger
	readerDone chan struct{}
}

// Spawn launches `node [--max-old-space-size=N] <scriptPath> --stdio
// [...args]`, wires stdin/stdout pipes, inherits stderr, creates the
// cancellation directory, and starts the reader goroutine.
func Spawn(ctx context.Context, kind rpc.ServerKind, opts LaunchOptions, log *zap.SugaredLogger) (*Process, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cancelDir, err := os.MkdirTemp("", fmt.Sprintf("ts-bridge-cancel-%s-*", kind))
	if err != nil {
		return nil, terrors.Wrapf(err, "create cancellation directory for %s server", kind)
	}

	node := opts.NodePath
	if node == "" {
		node = "node"
	}

	cmd := exec.CommandContext(ctx, node, nodeArgv(kind, opts, cancelDir)...)
	cmd.Env = append(os.Environ(), roleEnvVar+"="+string(kind))
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(cancelDir)
		return nil, terrors.Wrapf(err, "create stdin pipe for %s server", kind)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(cancelDir)
		return nil, terrors.Wrapf(err, "create stdout pipe for %s server", kind)
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(cancelDir)
		return nil, terrors.Wrapf(err, "spawn %s tsserver process", kind)
	}

	p := &Process{
		Kind:       kind,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		responses:  make(chan map[string]interface{}, 64),
		cancelDir:  cancelDir,
		log:        log.With("server_kind", string(kind)),
		readerDone: make(chan struct{}),
	}

	go p.readLoop()

	return p, nil
}

// nodeArgv composes the full node argument vector. --max-old-space-size
// must come before the script path: after it, V8 never sees it and the
// flag becomes an inert argument to tsserver.js.
func nodeArgv(kind rpc.ServerKind, opts LaunchOptions, cancelDir string) []string {
	var argv []string
	if opts.MaxOldSpaceSize > 0 {
		argv = append(argv, fmt.Sprintf("--max-old-space-size=%d", opts.MaxOldSpaceSize))
	}
	argv = append(argv, opts.ScriptPath)
	return append(argv, buildArgs(kind, opts, cancelDir)...)
}

func buildArgs(kind rpc.ServerKind, opts LaunchOptions, cancelDir string) []string {
	var args []string
	args = append(args, "--stdio")
	args = append(args, "--cancellationPipeName", filepath.Join(cancelDir, "seq_*"))
	if opts.Locale != "" {
		args = append(args, "--locale", opts.Locale)
	}
	if opts.LogDirectory != "" {
		logFile := filepath.Join(opts.LogDirectory, "tsserver-"+string(kind)+".log")
		args = append(args, "--logVerbosity", string(verbosityOrDefault(opts.LogVerbosity)), "--logFile", logFile)
	}
	for _, dir := range opts.PluginProbeDirs {
		args = append(args, "--pluginProbeLocations", dir)
	}
	if len(opts.GlobalPlugins) > 0 {
		args = append(args, "--globalPlugins", strings.Join(opts.GlobalPlugins, ","))
	}
	args = append(args, opts.ExtraArgs...)
	return args
}

func verbosityOrDefault(v LogVerbosity) LogVerbosity {
	if v == "" {
		return LogVerbosityNormal
	}
	return v
}

// Send writes payload to the child's stdin as a single line of
// newline-delimited JSON.
func (p *Process) Send(payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return terrors.Wrap(err, "serialize tsserver request")
	}
	data = append(data, '\n')

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := p.stdin.Write(data); err != nil {
		return terrors.Wrapf(err, "write to %s tsserver stdin", p.Kind)
	}
	return nil
}

// Cancel creates the seq_N sentinel file tsserver polls for on its next
// cycle, requesting cancellation of the given child-local seq.
func (p *Process) Cancel(seq int64) error {
	path := filepath.Join(p.cancelDir, "seq_"+strconv.FormatInt(seq, 10))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return terrors.Wrapf(err, "write cancellation sentinel for seq %d", seq)
	}
	return f.Close()
}

// Responses returns the channel of parsed tsserver frames (both
// request/response pairs and asynchronous events).
func (p *Process) Responses() <-chan map[string]interface{} {
	return p.responses
}

// Close kills the child process and waits for the reader goroutine to
// observe EOF, then removes the cancellation directory. This is the only
// path that terminates the process; no quit command is ever sent.
func (p *Process) Close() error {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.readerDone
	_ = p.cmd.Wait()
	os.RemoveAll(p.cancelDir)
	return nil
}

// readLoop parses Content-Length-framed frames off stdout: blank lines are
// ignored, a case-insensitive "content-length:" header names the body
// length, the following CRLF is consumed, and exactly that many bytes are
// read and parsed as JSON. Parse failures on an individual frame are
// logged and skipped; EOF ends the loop and closes the responses channel.
func (p *Process) readLoop() {
	defer close(p.readerDone)
	defer close(p.responses)

	reader := bufio.NewReader(p.stdout)

	for {
		contentLength, err := readContentLengthHeader(reader)
		if err != nil {
			if err != io.EOF {
				p.log.Debugw("tsserver reader stopped", "error", err)
			}
			return
		}

		body := make([]byte, contentLength)
		if _, err := io.ReadFull(reader, body); err != nil {
			p.log.Debugw("tsserver reader stopped reading body", "error", err)
			return
		}

		var frame map[string]interface{}
		if err := json.Unmarshal(body, &frame); err != nil {
			p.log.Warnw("dropping malformed tsserver frame", "error", err)
			continue
		}

		p.responses <- frame
	}
}

// readContentLengthHeader scans header lines until a blank line, returning
// the parsed Content-Length value. Returns io.EOF once the stream ends.
func readContentLengthHeader(reader *bufio.Reader) (int, error) {
	contentLength := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, io.EOF
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if contentLength < 0 {
				// Blank line with no header yet seen: keep scanning.
				continue
			}
			return contentLength, nil
		}

		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "content-length:") {
			value := strings.TrimSpace(trimmed[len("content-length:"):])
			n, err := strconv.Atoi(value)
			if err != nil {
				return 0, terrors.Wrapf(err, "invalid Content-Length header %q", trimmed)
			}
			contentLength = n
		}
		// Unknown headers are ignored.
	}
}

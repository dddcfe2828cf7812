// Package broker implements the project broker: the per-workspace actor
// that owns both tsserver children, their request queues, and the set of
// sessions subscribed to their events. The actor loop interleaves command
// handling with non-blocking polls of the child response channels on a
// ~10ms cadence; all broker state is confined to that one goroutine.
package broker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/provider"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
	"github.com/chojs23/ts-bridge/internal/bridge/tsserver"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// EventKind enumerates the ServerEvent variants broadcast to sessions.
type EventKind int

const (
	EventFrame EventKind = iota
	EventRestarting
	EventRestarted
	EventRestartFailed
	EventConfigUpdated
)

// RestartKind names which child(ren) a restart command affects.
type RestartKind string

const (
	RestartSyntax   RestartKind = "syntax"
	RestartSemantic RestartKind = "semantic"
	RestartBoth     RestartKind = "both"
)

// ServerEvent is broadcast to every subscribed session.
type ServerEvent struct {
	Kind    EventKind
	Server  rpc.ServerKind
	Frame   map[string]interface{}
	Message string
	Config  config.PluginSettings
}

// DispatchReceipt is the broker's handle for pending correlation, one per
// child a request was actually routed to.
type DispatchReceipt struct {
	Server rpc.ServerKind
	Seq    int64
}

// Broker owns one workspace's tsserver children and fans their events out
// to every registered session. Its internal state is mutated only by its
// own goroutine (run); all external interaction goes through the exported
// methods, which are commands sent over a channel.
type Broker struct {
	WorkspaceRoot string

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.SugaredLogger

	provider provider.Provider
	commands chan command
	done     chan struct{}
}

type cmdKind int

const (
	cmdRegisterSession cmdKind = iota
	cmdUnregisterSession
	cmdDispatch
	cmdUpdateConfig
	cmdRestart
	cmdCancel
	cmdShutdown
)

type command struct {
	kind cmdKind

	sessionID   string
	eventSender chan ServerEvent
	settings    config.PluginSettings

	route    rpc.Route
	payload  map[string]interface{}
	priority rpc.Priority

	restartKind RestartKind

	cancelServer rpc.ServerKind
	cancelSeq    int64

	respond chan any
}

// New starts a broker's actor goroutine for workspaceRoot. It does not
// spawn any tsserver child until the first Dispatch.
func New(workspaceRoot string, initial config.PluginSettings, prov provider.Provider, log *zap.SugaredLogger) *Broker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())

	b := &Broker{
		WorkspaceRoot: workspaceRoot,
		ctx:           ctx,
		cancel:        cancel,
		log:           log.With("workspace_root", workspaceRoot),
		provider:      prov,
		commands:      make(chan command),
		done:          make(chan struct{}),
	}

	go b.run(initial)
	return b
}

// state is confined to the run goroutine.
type state struct {
	settings config.PluginSettings

	syntax   *tsserver.Process
	semantic *tsserver.Process

	syntaxQueue   *rpc.Queue
	semanticQueue *rpc.Queue

	sessions map[string]chan ServerEvent
}

func (b *Broker) run(initial config.PluginSettings) {
	defer close(b.done)

	st := &state{
		settings:      initial,
		syntaxQueue:   rpc.NewQueue(),
		semanticQueue: rpc.NewQueue(),
		sessions:      make(map[string]chan ServerEvent),
	}

	// Live config reload: file edits to .ts-bridge.toml or the workspace
	// tsconfig drive the same merge path didChangeConfiguration uses.
	configEvents := make(chan struct{})
	if watcher, err := config.NewWatcher(b.WorkspaceRoot, b.log); err == nil {
		configEvents = watcher.Events
		defer watcher.Close()
	} else {
		b.log.Debugw("config watcher unavailable", "error", err)
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			b.teardown(st)
			return
		case cmd, ok := <-b.commands:
			if !ok {
				b.teardown(st)
				return
			}
			if b.handle(st, cmd) {
				b.teardown(st)
				return
			}
		case <-configEvents:
			b.reloadConfig(st)
		case <-ticker.C:
			b.pollChildren(st)
		}
	}
}

// reloadConfig re-resolves on-disk settings after a watched file changed,
// broadcasting ConfigUpdated when anything observable moved.
func (b *Broker) reloadConfig(st *state) {
	settings, err := config.Load(b.WorkspaceRoot)
	if err != nil {
		b.log.Warnw("reload workspace config", "error", err)
		return
	}
	if mergeSettings(&st.settings, settings) {
		b.broadcast(st, ServerEvent{Kind: EventConfigUpdated, Config: st.settings})
	}
}

func (b *Broker) teardown(st *state) {
	if st.syntax != nil {
		_ = st.syntax.Close()
	}
	if st.semantic != nil {
		_ = st.semantic.Close()
	}
	for id, inbox := range st.sessions {
		close(inbox)
		delete(st.sessions, id)
	}
}

// pollChildren drains every available frame from each live child's
// response channel and broadcasts it, without blocking when nothing is
// ready.
func (b *Broker) pollChildren(st *state) {
	for {
		drained := false
		if st.syntax != nil {
			select {
			case frame, ok := <-st.syntax.Responses():
				if ok {
					b.broadcast(st, ServerEvent{Kind: EventFrame, Server: rpc.ServerKindSyntax, Frame: frame})
					drained = true
				}
			default:
			}
		}
		if st.semantic != nil {
			select {
			case frame, ok := <-st.semantic.Responses():
				if ok {
					b.broadcast(st, ServerEvent{Kind: EventFrame, Server: rpc.ServerKindSemantic, Frame: frame})
					drained = true
				}
			default:
			}
		}
		if !drained {
			return
		}
	}
}

func (b *Broker) broadcast(st *state, ev ServerEvent) {
	// Each entry is the inbox of a forwardEvents goroutine, which is
	// always ready to receive, so the send neither blocks the broker nor
	// reorders delivery to a slow session.
	for _, ch := range st.sessions {
		ch <- ev
	}
}

// forwardEvents relays the broker's broadcasts to one session's event
// channel, buffering in arrival order while the session's pump is behind.
// Closing in ends the relay: whatever queued is flushed best-effort, then
// out is closed so the session observes end-of-stream.
func forwardEvents(in <-chan ServerEvent, out chan<- ServerEvent) {
	var queue []ServerEvent
	for {
		if len(queue) == 0 {
			ev, ok := <-in
			if !ok {
				close(out)
				return
			}
			queue = append(queue, ev)
		}
		select {
		case ev, ok := <-in:
			if !ok {
				for _, pending := range queue {
					select {
					case out <- pending:
					default:
					}
				}
				close(out)
				return
			}
			queue = append(queue, ev)
		case out <- queue[0]:
			queue = queue[1:]
		}
	}
}

// handle executes one command against st, returning true if the broker
// should exit its run loop.
func (b *Broker) handle(st *state, cmd command) bool {
	switch cmd.kind {
	case cmdRegisterSession:
		inbox := make(chan ServerEvent, 64)
		go forwardEvents(inbox, cmd.eventSender)
		st.sessions[cmd.sessionID] = inbox
		cmd.respond <- st.settings
		return false

	case cmdUnregisterSession:
		if inbox, ok := st.sessions[cmd.sessionID]; ok {
			close(inbox)
			delete(st.sessions, cmd.sessionID)
		}
		cmd.respond <- nil
		return false

	case cmdDispatch:
		receipts, err := b.dispatch(st, cmd.route, cmd.payload, cmd.priority)
		cmd.respond <- dispatchResult{receipts: receipts, err: err}
		return false

	case cmdUpdateConfig:
		changed := mergeSettings(&st.settings, cmd.settings)
		if changed {
			b.broadcast(st, ServerEvent{Kind: EventConfigUpdated, Config: st.settings})
		}
		cmd.respond <- configResult{changed: changed, settings: st.settings}
		return false

	case cmdRestart:
		b.restart(st, cmd.restartKind)
		cmd.respond <- nil
		return false

	case cmdCancel:
		var child *tsserver.Process
		if cmd.cancelServer == rpc.ServerKindSyntax {
			child = st.syntax
		} else {
			child = st.semantic
		}
		if child != nil {
			_ = child.Cancel(cmd.cancelSeq)
		}
		cmd.respond <- nil
		return false

	case cmdShutdown:
		cmd.respond <- nil
		return true
	}
	return false
}

type dispatchResult struct {
	receipts []DispatchReceipt
	err      error
}

type configResult struct {
	changed  bool
	settings config.PluginSettings
}

// mergeSettings applies observable fields from incoming onto s, reporting
// whether anything changed. SeparateDiagnosticServer is deliberately left
// to Restart rather than hot-applied here, since flipping it underneath a
// live semantic child would orphan the process without tearing it down.
func mergeSettings(s *config.PluginSettings, incoming config.PluginSettings) bool {
	changed := false
	if incoming.PublishDiagnosticOn != "" && incoming.PublishDiagnosticOn != s.PublishDiagnosticOn {
		s.PublishDiagnosticOn = incoming.PublishDiagnosticOn
		changed = true
	}
	if incoming.EnableInlayHints != s.EnableInlayHints {
		s.EnableInlayHints = incoming.EnableInlayHints
		changed = true
	}
	return changed
}

func (b *Broker) dispatch(st *state, route rpc.Route, payload map[string]interface{}, priority rpc.Priority) ([]DispatchReceipt, error) {
	var receipts []DispatchReceipt

	wantSyntax := route == rpc.RouteSyntax || route == rpc.RouteBoth
	wantSemantic := route == rpc.RouteSemantic || route == rpc.RouteBoth

	if wantSyntax {
		child, err := b.ensureSyntax(st)
		if err != nil {
			return nil, err
		}
		seq := st.syntaxQueue.Enqueue(clonePayload(payload), priority)
		if err := b.flush(st.syntaxQueue, child); err != nil {
			return nil, err
		}
		receipts = append(receipts, DispatchReceipt{Server: rpc.ServerKindSyntax, Seq: seq})
	}

	if wantSemantic {
		child, err := b.ensureSemantic(st)
		if err != nil {
			return nil, err
		}
		if child != nil {
			seq := st.semanticQueue.Enqueue(clonePayload(payload), priority)
			if err := b.flush(st.semanticQueue, child); err != nil {
				return nil, err
			}
			receipts = append(receipts, DispatchReceipt{Server: rpc.ServerKindSemantic, Seq: seq})
		}
	}

	if len(receipts) == 0 {
		return nil, terrors.ErrNoReceipts
	}
	return receipts, nil
}

func clonePayload(payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func (b *Broker) flush(q *rpc.Queue, child *tsserver.Process) error {
	for {
		req, ok := q.Dequeue()
		if !ok {
			return nil
		}
		if err := child.Send(req.Payload); err != nil {
			return err
		}
	}
}

func (b *Broker) ensureSyntax(st *state) (*tsserver.Process, error) {
	if st.syntax != nil {
		return st.syntax, nil
	}
	resolved, err := b.provider.Resolve(b.WorkspaceRoot)
	if err != nil {
		return nil, terrors.Wrap(err, "resolve tsserver for syntax child")
	}
	opts := st.settings.ToLaunchOptions()
	opts.NodePath, opts.ScriptPath = resolved.NodePath, resolved.ScriptPath
	proc, err := tsserver.Spawn(b.ctx, rpc.ServerKindSyntax, opts, b.log)
	if err != nil {
		return nil, terrors.Wrap(err, "spawn syntax tsserver child")
	}
	st.syntax = proc
	return proc, nil
}

func (b *Broker) ensureSemantic(st *state) (*tsserver.Process, error) {
	if !st.settings.SeparateDiagnosticServer {
		return nil, nil
	}
	if st.semantic != nil {
		return st.semantic, nil
	}
	resolved, err := b.provider.Resolve(b.WorkspaceRoot)
	if err != nil {
		return nil, terrors.Wrap(err, "resolve tsserver for semantic child")
	}
	opts := st.settings.ToLaunchOptions()
	opts.NodePath, opts.ScriptPath = resolved.NodePath, resolved.ScriptPath
	proc, err := tsserver.Spawn(b.ctx, rpc.ServerKindSemantic, opts, b.log)
	if err != nil {
		return nil, terrors.Wrap(err, "spawn semantic tsserver child")
	}
	st.semantic = proc
	return proc, nil
}

// restart drops the affected child(ren) and their queues, eagerly
// respawning so a spawn failure is caught and reported as RestartFailed
// rather than surfacing on the next unrelated dispatch.
func (b *Broker) restart(st *state, kind RestartKind) {
	b.broadcast(st, ServerEvent{Kind: EventRestarting, Message: string(kind)})

	if kind == RestartSyntax || kind == RestartBoth {
		if st.syntax != nil {
			_ = st.syntax.Close()
			st.syntax = nil
		}
		st.syntaxQueue = rpc.NewQueue()
	}
	if kind == RestartSemantic || kind == RestartBoth {
		if st.semantic != nil {
			_ = st.semantic.Close()
			st.semantic = nil
		}
		st.semanticQueue = rpc.NewQueue()
	}

	var err error
	if kind == RestartSyntax || kind == RestartBoth {
		_, err = b.ensureSyntax(st)
	}
	if err == nil && (kind == RestartSemantic || kind == RestartBoth) {
		_, err = b.ensureSemantic(st)
	}

	if err != nil {
		b.broadcast(st, ServerEvent{Kind: EventRestartFailed, Message: err.Error()})
		return
	}
	b.broadcast(st, ServerEvent{Kind: EventRestarted, Message: string(kind)})
}

// --- exported command API -------------------------------------------------

var errBrokerClosed = terrors.New("broker command sent after shutdown")

func (b *Broker) send(cmd command) (any, error) {
	cmd.respond = make(chan any, 1)
	select {
	case b.commands <- cmd:
	case <-b.done:
		return nil, errBrokerClosed
	}
	select {
	case v := <-cmd.respond:
		return v, nil
	case <-b.done:
		return nil, errBrokerClosed
	}
}

// RegisterSession subscribes a session to broker events, returning the
// broker's effective config (not the caller's).
func (b *Broker) RegisterSession(sessionID string, events chan ServerEvent, settings config.PluginSettings) (config.PluginSettings, error) {
	v, err := b.send(command{kind: cmdRegisterSession, sessionID: sessionID, eventSender: events, settings: settings})
	if err != nil {
		return config.PluginSettings{}, err
	}
	return v.(config.PluginSettings), nil
}

// UnregisterSession removes a session's subscription without tearing down
// any child.
func (b *Broker) UnregisterSession(sessionID string) {
	_, _ = b.send(command{kind: cmdUnregisterSession, sessionID: sessionID})
}

// Dispatch enqueues payload on the children named by route, flushing
// immediately, and returns one receipt per side actually dispatched.
func (b *Broker) Dispatch(route rpc.Route, payload map[string]interface{}, priority rpc.Priority) ([]DispatchReceipt, error) {
	v, err := b.send(command{kind: cmdDispatch, route: route, payload: payload, priority: priority})
	if err != nil {
		return nil, err
	}
	res := v.(dispatchResult)
	return res.receipts, res.err
}

// UpdateConfig merges workspace configuration, broadcasting ConfigUpdated
// on change.
func (b *Broker) UpdateConfig(settings config.PluginSettings) (bool, config.PluginSettings, error) {
	v, err := b.send(command{kind: cmdUpdateConfig, settings: settings})
	if err != nil {
		return false, config.PluginSettings{}, err
	}
	res := v.(configResult)
	return res.changed, res.settings, nil
}

// Restart tears down and respawns the named child(ren).
func (b *Broker) Restart(kind RestartKind) error {
	_, err := b.send(command{kind: cmdRestart, restartKind: kind})
	return err
}

// Cancel writes a cancellation sentinel for seq on the named child.
func (b *Broker) Cancel(server rpc.ServerKind, seq int64) error {
	_, err := b.send(command{kind: cmdCancel, cancelServer: server, cancelSeq: seq})
	return err
}

// Shutdown drops subscriptions, kills both children, and exits the actor
// loop.
func (b *Broker) Shutdown() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = b.send(command{kind: cmdShutdown})
	}()
	wg.Wait()
	b.cancel()
	<-b.done
}

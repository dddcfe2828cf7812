// Package session implements the per-client LSP connection: it owns the
// document store, pending-requests table, diagnostics aggregator, and
// inlay-hint cache, and drives the glsp transport loop. Handler methods
// run on transport goroutines and block on round-trips; the pump
// goroutine resolves them from the broker's event stream.
package session

import (
	"encoding/json"
	"sync"

	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/diagnostics"
	"github.com/chojs23/ts-bridge/internal/bridge/document"
	"github.com/chojs23/ts-bridge/internal/bridge/pending"
	"github.com/chojs23/ts-bridge/internal/bridge/registry"
)

// notifyFunc and callFunc mirror glsp.Context's Notify/Call fields. They
// are captured once, from the first handler invocation that carries a
// live *glsp.Context, and reused afterward by the session's pump
// goroutine to push diagnostics and progress notifications that do not
// originate from a client request.
type notifyFunc = glsp.NotifyFunc
type callFunc = glsp.CallFunc

// waiterResult is what a dispatched request's pump-goroutine resolution
// delivers to the blocked handler goroutine.
type waiterResult struct {
	value []byte
	err   error
}

// Session is the per-connection LSP endpoint. One Session is constructed
// per accepted transport (stdio process, or one per daemon-mode
// connection); its exported Handler builds the protocol.Handler a
// glspserver.Server is started with.
type Session struct {
	log      *zap.SugaredLogger
	registry *registry.Registry

	mu            sync.Mutex
	initialized   bool
	shuttingDown  bool
	workspaceRoot string
	rootURI       string
	bundle        registry.SessionBundle
	settings      config.PluginSettings

	notify      notifyFunc
	call        callFunc
	workDoneCap bool

	documents   *document.Store
	pending     *pending.Table
	diagnostics *diagnostics.Aggregator

	waitersMu sync.Mutex
	waiters   map[string]chan waiterResult

	inlay *inlayState

	restart      *restartState
	diagProgress *restartState

	quit     chan struct{}
	pumpDone chan struct{}
}

// New constructs an unregistered Session. It does no broker interaction
// until Initialize runs.
func New(log *zap.SugaredLogger, reg *registry.Registry) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		log:          log,
		registry:     reg,
		pending:      pending.New(),
		waiters:      make(map[string]chan waiterResult),
		inlay:        newInlayState(),
		restart:      &restartState{},
		diagProgress: &restartState{},
	}
}

// Handler builds the protocol.Handler wiring every LSP method this bridge
// advertises to the matching Session method.
func (s *Session) Handler() protocol.Handler {
	return protocol.Handler{
		Initialize:  s.Initialize,
		Initialized: s.Initialized,
		Shutdown:    s.Shutdown,
		Exit:        s.Exit,
		SetTrace:    s.SetTrace,

		TextDocumentDidOpen:   s.TextDocumentDidOpen,
		TextDocumentDidChange: s.TextDocumentDidChange,
		TextDocumentDidClose:  s.TextDocumentDidClose,

		TextDocumentHover:          s.TextDocumentHover,
		TextDocumentDefinition:     s.TextDocumentDefinition,
		TextDocumentTypeDefinition: s.TextDocumentTypeDefinition,
		TextDocumentReferences:     s.TextDocumentReferences,
		TextDocumentDocumentSymbol: s.TextDocumentDocumentSymbol,
		WorkspaceSymbol:            s.WorkspaceSymbol,

		TextDocumentCompletion: s.TextDocumentCompletion,
		CompletionItemResolve:  s.CompletionItemResolve,

		TextDocumentSignatureHelp: s.TextDocumentSignatureHelp,

		TextDocumentCodeAction: s.TextDocumentCodeAction,
		CodeActionResolve:      s.CodeActionResolve,

		TextDocumentRename:        s.TextDocumentRename,
		TextDocumentPrepareRename: s.TextDocumentPrepareRename,

		TextDocumentFormatting: s.TextDocumentFormatting,

		TextDocumentSemanticTokensFull:  s.TextDocumentSemanticTokensFull,
		TextDocumentSemanticTokensRange: s.TextDocumentSemanticTokensRange,

		WorkspaceExecuteCommand:         s.WorkspaceExecuteCommand,
		WorkspaceDidChangeConfiguration: s.WorkspaceDidChangeConfiguration,

		CancelRequest: s.CancelRequest,
	}
}

// GLSPHandler wraps the protocol.Handler in a glsp.Handler that first
// intercepts the methods outside the 3.16 schema this bridge still serves:
// textDocument/inlayHint, workspace/inlayHint/refresh, and the vendor
// ts-bridge/control notification. Everything else falls through to the
// generated protocol dispatch (which answers MethodNotFound for unknown
// methods).
func (s *Session) GLSPHandler() glsp.Handler {
	inner := s.Handler()
	return &bridgeHandler{session: s, inner: &inner}
}

type bridgeHandler struct {
	session *Session
	inner   *protocol.Handler
}

func (h *bridgeHandler) Handle(ctx *glsp.Context) (any, bool, bool, error) {
	switch ctx.Method {
	case methodInlayHint:
		var params inlayHintParams
		if err := json.Unmarshal(ctx.Params, &params); err != nil {
			return nil, true, false, err
		}
		result, err := h.session.textDocumentInlayHint(ctx, &params)
		return result, true, true, err

	case methodInlayHintRefresh:
		h.session.inlay.clear()
		return nil, true, true, nil

	case methodControl:
		var params controlParams
		if err := json.Unmarshal(ctx.Params, &params); err != nil {
			return nil, true, false, err
		}
		return nil, true, true, h.session.handleControl(ctx, params)
	}

	return h.inner.Handle(ctx)
}

// captureTransport stashes ctx's Notify/Call closures the first time a
// handler method runs with a live context, so the pump goroutine can push
// notifications outside of any request/response cycle.
func (s *Session) captureTransport(ctx *glsp.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notify == nil && ctx.Notify != nil {
		s.notify = ctx.Notify
	}
	if s.call == nil && ctx.Call != nil {
		s.call = ctx.Call
	}
}

func (s *Session) notifyClient(method string, params interface{}) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(method, params)
	}
}

package session

import (
	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/diagnostics"
	"github.com/chojs23/ts-bridge/internal/bridge/document"
	"github.com/chojs23/ts-bridge/internal/terrors"
	"github.com/chojs23/ts-bridge/internal/util"
	"github.com/chojs23/ts-bridge/internal/version"
)

var errAlreadyInitialized = terrors.New("session already initialized")

// Initialize extracts the workspace root (preferring rootPath, then
// rootUri, then the first workspaceFolders entry), applies
// initializationOptions as workspace settings, registers with the
// project broker, and advertises this bridge's capabilities.
func (s *Session) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.captureTransport(ctx)

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil, errAlreadyInitialized
	}
	s.mu.Unlock()

	root := workspaceRootFrom(params)

	settings, err := config.Load(root)
	if err != nil {
		return nil, terrors.Wrap(err, "load workspace settings")
	}
	if raw, ok := params.InitializationOptions.(map[string]interface{}); ok {
		settings.ApplyWorkspaceSettings(raw)
	}

	bundle, err := s.registry.RegisterSession(root, settings)
	if err != nil {
		return nil, terrors.Wrap(err, "register session with project broker")
	}

	workDoneCap := params.Capabilities.Window != nil && boolValue(params.Capabilities.Window.WorkDoneProgress)

	s.mu.Lock()
	s.initialized = true
	s.workspaceRoot = bundle.WorkspaceRoot
	s.rootURI = coords.FilePathToURI(bundle.WorkspaceRoot)
	s.bundle = bundle
	s.settings = bundle.Config
	s.workDoneCap = workDoneCap
	s.documents = document.NewStore(s.log)
	s.diagnostics = diagnostics.NewAggregator()
	s.quit = make(chan struct{})
	s.pumpDone = make(chan struct{})
	s.mu.Unlock()

	go s.pump()

	return initializeResult{
		Capabilities: adapters.ServerCapabilities(bundle.Config.EnableInlayHints),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    "ts-bridge",
			Version: util.Ptr(version.Get().Version),
		},
	}, nil
}

// initializeResult mirrors protocol.InitializeResult with map-typed
// capabilities, since the advertised set includes fields newer than the
// 3.16 schema (see adapters.ServerCapabilities).
type initializeResult struct {
	Capabilities map[string]interface{}               `json:"capabilities"`
	ServerInfo   *protocol.InitializeResultServerInfo `json:"serverInfo,omitempty"`
}

// Initialized is a no-op acknowledgement; the session is already fully
// wired up by the time this notification arrives.
func (s *Session) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.captureTransport(ctx)
	return nil
}

// Shutdown marks the session as winding down. The client is expected to
// send exit next; Shutdown itself does not tear anything down so a
// well-behaved client can still race a final request against it.
func (s *Session) Shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	return nil
}

// Exit unregisters the session from its broker and stops the pump
// goroutine. The broker drops the subscription; any stale events still in
// flight are discarded.
func (s *Session) Exit(ctx *glsp.Context) error {
	s.mu.Lock()
	initialized := s.initialized
	bundle := s.bundle
	quit := s.quit
	pumpDone := s.pumpDone
	s.initialized = false
	s.mu.Unlock()

	if !initialized {
		return nil
	}

	s.registry.UnregisterSession(bundle)
	if quit != nil {
		close(quit)
	}
	if pumpDone != nil {
		<-pumpDone
	}
	return nil
}

// SetTrace acknowledges $/setTrace; this bridge does not vary its own log
// verbosity from the client's trace setting.
func (s *Session) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// CancelRequest is best-effort. tsserver cancellation requires the
// (server, seq) pair a dispatch produced, but glsp's public Context does
// not expose the wire JSON-RPC id of other in-flight requests to a
// Handler callback, so params.ID cannot be mapped back to a pending
// entry here. This logs the request and returns without writing a
// cancellation sentinel; the in-flight request completes normally and
// its reply is discarded by the client.
func (s *Session) CancelRequest(ctx *glsp.Context, params *protocol.CancelParams) error {
	s.log.Debugw("cancelRequest received (best-effort, not wired to a specific dispatch)", "id", params.ID)
	return nil
}

func workspaceRootFrom(params *protocol.InitializeParams) string {
	if params.RootPath != nil && *params.RootPath != "" {
		return *params.RootPath
	}
	if params.RootURI != nil {
		if path, ok := coords.URIToFilePath(string(*params.RootURI)); ok {
			return path
		}
	}
	for _, folder := range params.WorkspaceFolders {
		if path, ok := coords.URIToFilePath(folder.URI); ok {
			return path
		}
	}
	return "."
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

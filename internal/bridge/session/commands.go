package session

import (
	"context"
	"path/filepath"

	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/broker"
	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// controlParams is the vendor ts-bridge/control notification payload.
type controlParams struct {
	Action  string  `json:"action"`
	Kind    string  `json:"kind"`
	RootURI *string `json:"rootUri,omitempty"`
}

// WorkspaceExecuteCommand maps the TSB* user-command vocabulary onto
// tsserver requests.
func (s *Session) WorkspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	s.captureTransport(ctx)

	switch params.Command {
	case "TSBOrganizeImports":
		return s.commandRequest(argURI(params.Arguments), adapters.OrganizeImports)
	case "TSBSortImports":
		return s.commandRequest(argURI(params.Arguments), adapters.SortImports)
	case "TSBRemoveUnusedImports":
		return s.commandRequest(argURI(params.Arguments), adapters.RemoveUnusedImports)
	case "TSBRemoveUnused":
		return s.commandRequest(argFilePath(params.Arguments), adapters.RemoveUnused)
	case "TSBAddMissingImports":
		return s.commandRequest(argFilePath(params.Arguments), adapters.AddMissingImports)
	case "TSBFixAll":
		return s.commandRequest(argFilePath(params.Arguments), adapters.FixAll)
	case "TSBFileReferences":
		return s.commandRequest(argURI(params.Arguments), adapters.FileReferences)

	case "TSBGoToSourceDefinition":
		uri, line, character, ok := argPosition(params.Arguments)
		if !ok {
			return nil, terrors.Newf("%s requires TextDocumentPositionParams", params.Command)
		}
		raw, err := s.request(context.Background(), adapters.SourceDefinition(uri, line, character))
		if err != nil {
			return nil, err
		}
		return raw, nil

	case "TSBRenameFile":
		oldURI, newURI, ok := argRenamePaths(params.Arguments)
		if !ok {
			return nil, terrors.Newf("%s requires oldUri and newUri", params.Command)
		}
		raw, err := s.request(context.Background(), adapters.RenameFile(oldURI, newURI))
		if err != nil {
			return nil, err
		}
		return raw, nil

	case "TSBRestartProject":
		if uri, ok := argURIOptional(params.Arguments); ok && !s.ownsRoot(uri) {
			return nil, terrors.Newf("rootUri does not match this session's workspace")
		}
		return nil, s.requestRestart(broker.RestartBoth)

	default:
		return nil, terrors.Newf("unknown command %q", params.Command)
	}
}

// WorkspaceDidChangeConfiguration merges the client's settings through the
// broker; a resulting ConfigUpdated broadcast brings them back to every
// session sharing the workspace.
func (s *Session) WorkspaceDidChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	s.captureTransport(ctx)
	if !s.ready() {
		return nil
	}

	raw, ok := params.Settings.(map[string]interface{})
	if !ok {
		return nil
	}

	s.mu.Lock()
	settings := s.settings
	bundle := s.bundle
	s.mu.Unlock()

	if !settings.ApplyWorkspaceSettings(raw) {
		return nil
	}
	_, _, err := bundle.Handle.UpdateConfig(settings)
	return err
}

// handleControl validates and delegates the vendor restart notification.
// A rootUri naming a different workspace means the client broadcast the
// notification to every running bridge; it is silently ignored here.
func (s *Session) handleControl(ctx *glsp.Context, params controlParams) error {
	s.captureTransport(ctx)

	if params.Action != "restart" {
		return terrors.Newf("unknown control action %q", params.Action)
	}
	kind, ok := restartKindOf(params.Kind)
	if !ok {
		return terrors.Newf("invalid restart kind %q", params.Kind)
	}
	if params.RootURI != nil && !s.ownsRoot(*params.RootURI) {
		return nil
	}
	return s.requestRestart(kind)
}

func (s *Session) requestRestart(kind broker.RestartKind) error {
	s.mu.Lock()
	bundle := s.bundle
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return terrors.New("session not initialized")
	}
	return bundle.Handle.Restart(kind)
}

// ownsRoot reports whether uri names this session's workspace root.
func (s *Session) ownsRoot(uri string) bool {
	path, ok := coords.URIToFilePath(uri)
	if !ok {
		return false
	}
	s.mu.Lock()
	root := s.workspaceRoot
	s.mu.Unlock()
	return filepath.Clean(path) == filepath.Clean(root)
}

func restartKindOf(kind string) (broker.RestartKind, bool) {
	switch kind {
	case "syntax":
		return broker.RestartSyntax, true
	case "semantic":
		return broker.RestartSemantic, true
	case "both":
		return broker.RestartBoth, true
	default:
		return "", false
	}
}

// commandRequest runs the one-argument command shape shared by most TSB*
// commands: resolve the target document, build the RequestSpec, round-trip.
func (s *Session) commandRequest(target string, build func(string) tsbproto.RequestSpec) (any, error) {
	if target == "" {
		return nil, terrors.New("command requires a document argument")
	}
	raw, err := s.request(context.Background(), build(target))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// --- command argument parsing --------------------------------------------

// argURI pulls a document URI out of the first command argument, accepting
// {textDocument:{uri}}, {uri}, a bare TextDocumentIdentifier, or a string.
func argURI(args []any) string {
	uri, _ := uriFromValue(first(args))
	return uri
}

func argURIOptional(args []any) (string, bool) {
	return uriFromValue(first(args))
}

// argFilePath resolves the first argument's URI to a tsserver file path.
func argFilePath(args []any) string {
	uri := argURI(args)
	if uri == "" {
		return ""
	}
	path, ok := coords.URIToFilePath(uri)
	if !ok {
		return uri
	}
	return path
}

// argPosition parses TextDocumentPositionParams from the first argument.
func argPosition(args []any) (uri string, line, character int, ok bool) {
	m, isMap := first(args).(map[string]interface{})
	if !isMap {
		return "", 0, 0, false
	}
	uri, ok = uriFromValue(m)
	if !ok {
		return "", 0, 0, false
	}
	pos, isMap := m["position"].(map[string]interface{})
	if !isMap {
		return "", 0, 0, false
	}
	return uri, intField(pos, "line"), intField(pos, "character"), true
}

// argRenamePaths parses TSBRenameFile's argument: {oldUri, newUri},
// {files:[{oldUri, newUri}]}, or two string arguments.
func argRenamePaths(args []any) (oldURI, newURI string, ok bool) {
	if m, isMap := first(args).(map[string]interface{}); isMap {
		if o, n := stringValue(m["oldUri"]), stringValue(m["newUri"]); o != "" && n != "" {
			return o, n, true
		}
		if files, isList := m["files"].([]interface{}); isList && len(files) > 0 {
			if fm, isMap := files[0].(map[string]interface{}); isMap {
				if o, n := stringValue(fm["oldUri"]), stringValue(fm["newUri"]); o != "" && n != "" {
					return o, n, true
				}
			}
		}
		return "", "", false
	}
	if len(args) >= 2 {
		if o, n := stringValue(args[0]), stringValue(args[1]); o != "" && n != "" {
			return o, n, true
		}
	}
	return "", "", false
}

func uriFromValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case map[string]interface{}:
		if td, ok := val["textDocument"].(map[string]interface{}); ok {
			if uri := stringValue(td["uri"]); uri != "" {
				return uri, true
			}
		}
		if uri := stringValue(val["uri"]); uri != "" {
			return uri, true
		}
	}
	return "", false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func first(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

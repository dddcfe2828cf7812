package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// fixAllIDs is the fixed vocabulary of combined-fix ids TSBFixAll chains
// through, one getCombinedCodeFix request per id.
var fixAllIDs = []string{
	"fixClassIncorrectlyImplementsInterface",
	"fixAwaitInSyncFunction",
	"fixUnreachableCode",
}

// CodeAction builds tsserver's "getCodeFixes" request for
// textDocument/codeAction. Diagnostics in the request range supply the
// error codes tsserver's getCodeFixes command requires.
func CodeAction(params *protocol3.CodeActionParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	start := coords.ToTSServer(int(params.Range.Start.Line), int(params.Range.Start.Character))
	end := coords.ToTSServer(int(params.Range.End.Line), int(params.Range.End.Character))

	var codes []interface{}
	for _, d := range params.Context.Diagnostics {
		if d.Code != nil {
			codes = append(codes, d.Code.Value)
		}
	}

	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "getCodeFixes",
			"arguments": map[string]interface{}{
				"file":        path,
				"startLine":   start.Line,
				"startOffset": start.Offset,
				"endLine":     end.Line,
				"endOffset":   end.Offset,
				"errorCodes":  codes,
			},
		},
		Context:    path,
		OnResponse: codeActionAdapter,
	}
}

func codeActionAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	file, _ := ctx.(string)
	items, _ := payload["body"].([]interface{})
	actions := make([]protocol3.CodeAction, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		kind := protocol3.CodeActionKindQuickFix
		desc, _ := m["description"].(string)
		edit := workspaceEditFromChanges(m["changes"], file)
		actions = append(actions, protocol3.CodeAction{
			Title: desc,
			Kind:  &kind,
			Edit:  edit,
		})
	}
	return tsbproto.Ready(actions)
}

// workspaceEditFromChanges converts tsserver's per-file FileCodeEdits
// array into an LSP WorkspaceEdit keyed by file:// URI.
func workspaceEditFromChanges(raw interface{}, fallbackFile string) *protocol3.WorkspaceEdit {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	changes := map[protocol3.DocumentUri][]protocol3.TextEdit{}
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		file, _ := m["fileName"].(string)
		if file == "" {
			file = fallbackFile
		}
		uri := protocol3.DocumentUri(coords.FilePathToURI(file))
		edits, _ := m["textChanges"].([]interface{})
		for _, e := range edits {
			em, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			r, _ := rangeFromTSServerFields(em)
			newText, _ := em["newText"].(string)
			changes[uri] = append(changes[uri], protocol3.TextEdit{Range: r, NewText: newText})
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return &protocol3.WorkspaceEdit{Changes: changes}
}

// CodeActionResolve is a no-op passthrough: this bridge's code actions
// already carry their edit inline from getCodeFixes, so resolve simply
// returns the action unchanged (advertised only because the client
// capability flag is required alongside lazily-computed actions this
// bridge doesn't currently produce).
func CodeActionResolve(action *protocol3.CodeAction) (protocol3.CodeAction, error) {
	return *action, nil
}

// fixAllContext threads the accumulated WorkspaceEdit and remaining fix
// ids through the Continue chain.
type fixAllContext struct {
	file      string
	remaining []string
	changes   map[protocol3.DocumentUri][]protocol3.TextEdit
}

// FixAll starts the TSBFixAll chain: one getCombinedCodeFix request per
// known fix-id, merging each response's edits by URI, replying only once
// the chain is exhausted.
func FixAll(file string) tsbproto.RequestSpec {
	return fixAllStep(fixAllContext{file: file, remaining: fixAllIDs, changes: map[protocol3.DocumentUri][]protocol3.TextEdit{}})
}

func fixAllStep(ctx fixAllContext) tsbproto.RequestSpec {
	id := ctx.remaining[0]
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "getCombinedCodeFix",
			"arguments": map[string]interface{}{
				"scope": map[string]interface{}{
					"type": "file",
					"args": map[string]interface{}{"file": ctx.file},
				},
				"fixId": id,
			},
		},
		Context:    ctx,
		OnResponse: fixAllAdapter,
	}
}

func fixAllAdapter(payload map[string]interface{}, rawCtx interface{}) (tsbproto.AdapterResult, error) {
	ctx, _ := rawCtx.(fixAllContext)

	body, _ := payload["body"].(map[string]interface{})
	if body != nil {
		if edit := workspaceEditFromChanges(body["changes"], ctx.file); edit != nil {
			for uri, edits := range edit.Changes {
				ctx.changes[uri] = append(ctx.changes[uri], edits...)
			}
		}
	}

	next := ctx.remaining[1:]
	if len(next) == 0 {
		return tsbproto.Ready(protocol3.WorkspaceEdit{Changes: ctx.changes})
	}

	ctx.remaining = next
	nextSpec := fixAllStep(ctx)
	return tsbproto.Continue(nextSpec)
}

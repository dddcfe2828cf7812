package adapters

import (
	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// Document lifecycle flows through tsserver's single "updateOpen" command
// with its openFiles/changedFiles/closedFiles buckets. All three are
// dispatched at priority Const on both children so they precede any
// in-flight work for the file.

func updateOpen(workspaceRoot string, open, changed, closed []interface{}) protocol.NotificationSpec {
	if open == nil {
		open = []interface{}{}
	}
	if changed == nil {
		changed = []interface{}{}
	}
	if closed == nil {
		closed = []interface{}{}
	}
	return protocol.NotificationSpec{
		Route:    rpc.RouteBoth,
		Priority: rpc.PriorityConst,
		Payload: map[string]interface{}{
			"command": "updateOpen",
			"arguments": map[string]interface{}{
				"projectRootPath": workspaceRoot,
				"openFiles":       open,
				"changedFiles":    changed,
				"closedFiles":     closed,
			},
		},
	}
}

// OpenNotification builds the updateOpen command announcing a newly opened
// document with its full content.
func OpenNotification(workspaceRoot, uri, text, languageID string) protocol.NotificationSpec {
	path, _ := coords.URIToFilePath(uri)
	entry := map[string]interface{}{
		"file":           path,
		"fileContent":    text,
		"scriptKindName": coords.ScriptKindFromLanguage(languageID),
	}
	return updateOpen(workspaceRoot, []interface{}{entry}, nil, nil)
}

// TextChange is one incremental edit in tsserver's 1-based line/offset
// coordinates. A nil Start/End pair means a whole-document replacement.
type TextChange struct {
	Start   *coords.TSPosition
	End     *coords.TSPosition
	NewText string
}

// ChangeNotification builds the updateOpen command carrying the document's
// applied edits, in received order.
func ChangeNotification(workspaceRoot, uri string, changes []TextChange) protocol.NotificationSpec {
	path, _ := coords.URIToFilePath(uri)

	textChanges := make([]interface{}, 0, len(changes))
	for _, c := range changes {
		tc := map[string]interface{}{"newText": c.NewText}
		if c.Start != nil && c.End != nil {
			tc["start"] = map[string]interface{}{"line": c.Start.Line, "offset": c.Start.Offset}
			tc["end"] = map[string]interface{}{"line": c.End.Line, "offset": c.End.Offset}
		}
		textChanges = append(textChanges, tc)
	}

	changed := []interface{}{map[string]interface{}{
		"fileName":    path,
		"textChanges": textChanges,
	}}
	return updateOpen(workspaceRoot, nil, changed, nil)
}

// CloseNotification builds the updateOpen command dropping a closed file.
func CloseNotification(workspaceRoot, uri string) protocol.NotificationSpec {
	path, _ := coords.URIToFilePath(uri)
	return updateOpen(workspaceRoot, nil, nil, []interface{}{path})
}

// GeterrNotification builds tsserver's "geterr" command, dispatched on
// Both at Low priority so diagnostics never jump ahead of interactive
// requests.
func GeterrNotification(uris []string) protocol.NotificationSpec {
	files := make([]string, 0, len(uris))
	for _, uri := range uris {
		path, _ := coords.URIToFilePath(uri)
		files = append(files, path)
	}
	return protocol.NotificationSpec{
		Route:    rpc.RouteBoth,
		Priority: rpc.PriorityLow,
		Payload: map[string]interface{}{
			"command": "geterr",
			"arguments": map[string]interface{}{
				"files": files,
				"delay": 0,
			},
		},
	}
}

// ConfigureRequest builds tsserver's "configure" command carrying the
// inlay-hint preference set for the requested mode, dispatched at
// priority Const so it lands before the hint request it precedes.
func ConfigureRequest(enabled bool) map[string]interface{} {
	return map[string]interface{}{
		"command": "configure",
		"arguments": map[string]interface{}{
			"preferences": map[string]interface{}{
				"includeInlayParameterNameHints":                        inlayParameterNameHintsValue(enabled),
				"includeInlayParameterNameHintsWhenArgumentMatchesName": enabled,
				"includeInlayFunctionParameterTypeHints":                enabled,
				"includeInlayVariableTypeHints":                         enabled,
				"includeInlayPropertyDeclarationTypeHints":              enabled,
				"includeInlayFunctionLikeReturnTypeHints":               enabled,
				"includeInlayEnumMemberValueHints":                      enabled,
			},
		},
	}
}

func inlayParameterNameHintsValue(enabled bool) string {
	if enabled {
		return "all"
	}
	return "none"
}

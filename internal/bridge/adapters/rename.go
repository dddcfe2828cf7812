package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// renameRequest builds tsserver's "rename" command shared by prepareRename
// (findInStrings/findInComments both false, info-only) and rename itself.
func renameRequest(uri string, line, character int, infoOnly bool) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(uri)
	ts := coords.ToTSServer(line, character)
	spec := tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "rename",
			"arguments": map[string]interface{}{
				"file":            path,
				"line":            ts.Line,
				"offset":          ts.Offset,
				"findInStrings":   false,
				"findInComments":  false,
			},
		},
	}
	if infoOnly {
		spec.OnResponse = prepareRenameAdapter
	} else {
		spec.OnResponse = renameAdapter
	}
	return spec
}

// PrepareRename builds the info-only rename request for
// textDocument/prepareRename.
func PrepareRename(params *protocol3.PrepareRenameParams) tsbproto.RequestSpec {
	return renameRequest(string(params.TextDocument.URI), int(params.Position.Line), int(params.Position.Character), true)
}

func prepareRenameAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	info, _ := body["info"].(map[string]interface{})
	if info == nil {
		return tsbproto.Ready(nil)
	}
	if canRename, ok := info["canRename"].(bool); ok && !canRename {
		return tsbproto.Ready(nil)
	}
	triggerSpan, _ := info["triggerSpan"].(map[string]interface{})
	r, _ := rangeFromTSServerFields(triggerSpan)
	displayName, _ := info["displayName"].(string)
	return tsbproto.Ready(prepareRenameResult{Range: r, Placeholder: displayName})
}

// prepareRenameResult is the {range, placeholder} variant of the
// prepareRename response union.
type prepareRenameResult struct {
	Range       protocol3.Range `json:"range"`
	Placeholder string          `json:"placeholder"`
}

// Rename builds tsserver's "rename" request for textDocument/rename.
func Rename(params *protocol3.RenameParams) tsbproto.RequestSpec {
	spec := renameRequest(string(params.TextDocument.URI), int(params.Position.Line), int(params.Position.Character), false)
	spec.Context = params.NewName
	return spec
}

func renameAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	newName, _ := ctx.(string)
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready(protocol3.WorkspaceEdit{})
	}
	locs, _ := body["locs"].([]interface{})
	changes := map[protocol3.DocumentUri][]protocol3.TextEdit{}
	for _, l := range locs {
		lm, ok := l.(map[string]interface{})
		if !ok {
			continue
		}
		file, _ := lm["file"].(string)
		uri := protocol3.DocumentUri(coords.FilePathToURI(file))
		spans, _ := lm["locs"].([]interface{})
		for _, s := range spans {
			sm, ok := s.(map[string]interface{})
			if !ok {
				continue
			}
			r, _ := rangeFromTSServerFields(sm)
			changes[uri] = append(changes[uri], protocol3.TextEdit{Range: r, NewText: newName})
		}
	}
	return tsbproto.Ready(protocol3.WorkspaceEdit{Changes: changes})
}

// RenameFile builds tsserver's "getEditsForFileRename" request for the
// TSBRenameFile user command.
func RenameFile(oldURI, newURI string) tsbproto.RequestSpec {
	oldPath, _ := coords.URIToFilePath(oldURI)
	newPath, _ := coords.URIToFilePath(newURI)
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "getEditsForFileRename",
			"arguments": map[string]interface{}{
				"oldFilePath": oldPath,
				"newFilePath": newPath,
			},
		},
		Context:    oldPath,
		OnResponse: renameFileAdapter,
	}
}

func renameFileAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	fallback, _ := ctx.(string)
	items, _ := payload["body"].([]interface{})
	changes := map[protocol3.DocumentUri][]protocol3.TextEdit{}
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		file, _ := m["fileName"].(string)
		if file == "" {
			file = fallback
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
	return tsbproto.Ready(protocol3.WorkspaceEdit{Changes: changes})
}

// FileReferences builds tsserver's "fileReferences" request for the
// TSBFileReferences user command.
func FileReferences(uri string) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(uri)
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command":   "fileReferences",
			"arguments": map[string]interface{}{"file": path},
		},
		OnResponse: fileReferencesAdapter,
	}
}

func fileReferencesAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready([]protocol3.Location{})
	}
	refs, _ := body["refs"].([]interface{})
	locs := make([]protocol3.Location, 0, len(refs))
	for _, r := range refs {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		file, _ := m["file"].(string)
		rng, _ := rangeFromTSServerFields(m)
		locs = append(locs, protocol3.Location{URI: protocol3.DocumentUri(coords.FilePathToURI(file)), Range: rng})
	}
	return tsbproto.Ready(locs)
}

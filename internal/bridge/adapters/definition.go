package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

func positionCommandSpec(command, uri string, line, character int, onResponse tsbproto.ResponseAdapter) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(uri)
	ts := coords.ToTSServer(line, character)
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": command,
			"arguments": map[string]interface{}{
				"file":   path,
				"line":   ts.Line,
				"offset": ts.Offset,
			},
		},
		OnResponse: onResponse,
	}
}

// Definition builds tsserver's "definition" request for textDocument/definition.
func Definition(params *protocol3.DefinitionParams) tsbproto.RequestSpec {
	return positionCommandSpec("definition", string(params.TextDocument.URI),
		int(params.Position.Line), int(params.Position.Character), fileSpanListAdapter)
}

// TypeDefinition builds tsserver's "typeDefinition" request.
func TypeDefinition(params *protocol3.TypeDefinitionParams) tsbproto.RequestSpec {
	return positionCommandSpec("typeDefinition", string(params.TextDocument.URI),
		int(params.Position.Line), int(params.Position.Character), fileSpanListAdapter)
}

// References builds tsserver's "references" request for textDocument/references.
func References(params *protocol3.ReferenceParams) tsbproto.RequestSpec {
	return positionCommandSpec("references", string(params.TextDocument.URI),
		int(params.Position.Line), int(params.Position.Character), referencesAdapter)
}

// SourceDefinition builds tsserver's "findSourceDefinition" request for
// the TSBGoToSourceDefinition user command.
func SourceDefinition(uri string, line, character int) tsbproto.RequestSpec {
	return positionCommandSpec("findSourceDefinition", uri, line, character, sourceDefinitionAdapter)
}

// fileSpanListAdapter turns a tsserver body = [{file, start, end}, ...]
// response into a slice of LocationLink, shared by definition and
// typeDefinition.
func fileSpanListAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	items, _ := payload["body"].([]interface{})
	links := make([]protocol3.LocationLink, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		links = append(links, locationLinkFromSpan(m))
	}
	return tsbproto.Ready(links)
}

// sourceDefinitionAdapter mirrors fileSpanListAdapter but replies with
// the first span as a single LocationLink.
func sourceDefinitionAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	items, _ := payload["body"].([]interface{})
	if len(items) == 0 {
		return tsbproto.Ready(nil)
	}
	m, ok := items[0].(map[string]interface{})
	if !ok {
		return tsbproto.Ready(nil)
	}
	return tsbproto.Ready(locationLinkFromSpan(m))
}

func locationLinkFromSpan(m map[string]interface{}) protocol3.LocationLink {
	file, _ := m["file"].(string)
	uri := protocol3.DocumentUri(coords.FilePathToURI(file))
	r, _ := rangeFromTSServerFields(m)
	return protocol3.LocationLink{
		TargetURI:            uri,
		TargetRange:          r,
		TargetSelectionRange: r,
	}
}

// referencesAdapter turns tsserver's references body (a refs array with
// per-item file/start/end/lineText/isWriteAccess) into LSP Location values.
func referencesAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready([]protocol3.Location{})
	}
	refs, _ := body["refs"].([]interface{})
	locs := make([]protocol3.Location, 0, len(refs))
	for _, item := range refs {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		file, _ := m["file"].(string)
		r, _ := rangeFromTSServerFields(m)
		locs = append(locs, protocol3.Location{
			URI:   protocol3.DocumentUri(coords.FilePathToURI(file)),
			Range: r,
		})
	}
	return tsbproto.Ready(locs)
}

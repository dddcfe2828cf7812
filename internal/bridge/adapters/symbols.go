package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// DocumentSymbol builds tsserver's "navtree" request for
// textDocument/documentSymbol.
func DocumentSymbol(params *protocol3.DocumentSymbolParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command":   "navtree",
			"arguments": map[string]interface{}{"file": path},
		},
		OnResponse: documentSymbolAdapter,
	}
}

func documentSymbolAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready([]protocol3.DocumentSymbol{})
	}
	children, _ := body["childItems"].([]interface{})
	syms := make([]protocol3.DocumentSymbol, 0, len(children))
	for _, c := range children {
		m, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if s, ok := navTreeToSymbol(m); ok {
			syms = append(syms, s)
		}
	}
	return tsbproto.Ready(syms)
}

func navTreeToSymbol(m map[string]interface{}) (protocol3.DocumentSymbol, bool) {
	name, _ := m["text"].(string)
	if name == "" {
		return protocol3.DocumentSymbol{}, false
	}
	kind := symbolKindFromTS(stringField(m, "kind"))

	spans, _ := m["spans"].([]interface{})
	var full protocol3.Range
	if len(spans) > 0 {
		if span, ok := spans[0].(map[string]interface{}); ok {
			full, _ = rangeFromTSServerFields(span)
		}
	}

	sym := protocol3.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          full,
		SelectionRange: full,
	}

	children, _ := m["childItems"].([]interface{})
	for _, c := range children {
		cm, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if child, ok := navTreeToSymbol(cm); ok {
			sym.Children = append(sym.Children, child)
		}
	}
	return sym, true
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// symbolKindFromTS maps tsserver's scriptElementKind strings to LSP
// SymbolKind, covering the identifiers navtree actually emits.
func symbolKindFromTS(kind string) protocol3.SymbolKind {
	switch kind {
	case "module":
		return protocol3.SymbolKindModule
	case "class":
		return protocol3.SymbolKindClass
	case "interface":
		return protocol3.SymbolKindInterface
	case "enum":
		return protocol3.SymbolKindEnum
	case "enum member":
		return protocol3.SymbolKindEnumMember
	case "function", "local function":
		return protocol3.SymbolKindFunction
	case "method":
		return protocol3.SymbolKindMethod
	case "property", "getter", "setter":
		return protocol3.SymbolKindProperty
	case "var", "local var", "parameter":
		return protocol3.SymbolKindVariable
	case "const":
		return protocol3.SymbolKindConstant
	case "constructor":
		return protocol3.SymbolKindConstructor
	case "type":
		return protocol3.SymbolKindTypeParameter
	default:
		return protocol3.SymbolKindVariable
	}
}

// WorkspaceSymbol builds tsserver's "navto" request for workspace/symbol.
func WorkspaceSymbol(params *protocol3.WorkspaceSymbolParams) tsbproto.RequestSpec {
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "navto",
			"arguments": map[string]interface{}{
				"searchValue":   params.Query,
				"maxResultCount": 200,
			},
		},
		OnResponse: workspaceSymbolAdapter,
	}
}

func workspaceSymbolAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	items, _ := payload["body"].([]interface{})
	syms := make([]protocol3.SymbolInformation, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		file, _ := m["file"].(string)
		r, _ := rangeFromTSServerFields(m)
		syms = append(syms, protocol3.SymbolInformation{
			Name:     name,
			Kind:     symbolKindFromTS(stringField(m, "kind")),
			Location: protocol3.Location{URI: protocol3.DocumentUri(coords.FilePathToURI(file)), Range: r},
		})
	}
	return tsbproto.Ready(syms)
}

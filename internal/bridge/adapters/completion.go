package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// completionContext carries the originating file and tsserver line/offset
// into completionAdapter, which stamps them into each item's Data so a
// later completionItem/resolve can issue the entryDetails follow-up.
type completionContext struct {
	file string
	line int
	char int
}

// Completion builds tsserver's "completionInfo" request for
// textDocument/completion.
func Completion(params *protocol3.CompletionParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	ts := coords.ToTSServer(int(params.Position.Line), int(params.Position.Character))
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "completionInfo",
			"arguments": map[string]interface{}{
				"file":                   path,
				"line":                   ts.Line,
				"offset":                 ts.Offset,
				"includeExternalModuleExports": true,
				"includeInsertTextCompletions": true,
			},
		},
		Context:    completionContext{file: path, line: ts.Line, char: ts.Offset},
		OnResponse: completionAdapter,
	}
}

func completionAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	cc, _ := ctx.(completionContext)
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready(protocol3.CompletionList{IsIncomplete: false, Items: []protocol3.CompletionItem{}})
	}
	entries, _ := body["entries"].([]interface{})
	items := make([]protocol3.CompletionItem, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		kind := completionKindFromTS(stringField(m, "kind"))
		sortText, _ := m["sortText"].(string)
		items = append(items, protocol3.CompletionItem{
			Label:    name,
			Kind:     &kind,
			SortText: &sortText,
			Data: map[string]interface{}{
				"name":   name,
				"source": m["source"],
				"file":   cc.file,
				"line":   cc.line,
				"offset": cc.char,
			},
		})
	}
	return tsbproto.Ready(protocol3.CompletionList{IsIncomplete: false, Items: items})
}

func completionKindFromTS(kind string) protocol3.CompletionItemKind {
	switch kind {
	case "class":
		return protocol3.CompletionItemKindClass
	case "interface":
		return protocol3.CompletionItemKindInterface
	case "enum":
		return protocol3.CompletionItemKindEnum
	case "enum member":
		return protocol3.CompletionItemKindEnumMember
	case "method":
		return protocol3.CompletionItemKindMethod
	case "function", "local function":
		return protocol3.CompletionItemKindFunction
	case "property", "getter", "setter":
		return protocol3.CompletionItemKindProperty
	case "var", "local var", "parameter", "const":
		return protocol3.CompletionItemKindVariable
	case "module", "external module name":
		return protocol3.CompletionItemKindModule
	case "keyword":
		return protocol3.CompletionItemKindKeyword
	case "type":
		return protocol3.CompletionItemKindTypeParameter
	default:
		return protocol3.CompletionItemKindText
	}
}

// CompletionResolve builds tsserver's "completionEntryDetails" request for
// completionItem/resolve, the chained-adapter-free single-round-trip case:
// the file/position are recovered from the item's Data field rather than
// the Pending Table's context, since resolve requests arrive as a fresh
// client request uncorrelated with the original completion dispatch.
func CompletionResolve(item *protocol3.CompletionItem, file string, line, char int) tsbproto.RequestSpec {
	name := item.Label
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "completionEntryDetails",
			"arguments": map[string]interface{}{
				"file":    file,
				"line":    line,
				"offset":  char,
				"entryNames": []string{name},
			},
		},
		Context:    *item,
		OnResponse: completionResolveAdapter,
	}
}

func completionResolveAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	item, _ := ctx.(protocol3.CompletionItem)

	details, _ := payload["body"].([]interface{})
	if len(details) == 0 {
		return tsbproto.Ready(item)
	}
	d, ok := details[0].(map[string]interface{})
	if !ok {
		return tsbproto.Ready(item)
	}

	display := joinDisplayParts(d["displayParts"])
	doc := joinDocParts(d["documentation"])

	kind := protocol3.MarkupKindMarkdown
	detail := display
	item.Detail = &detail
	if doc != "" {
		item.Documentation = protocol3.MarkupContent{Kind: kind, Value: doc}
	}
	return tsbproto.Ready(item)
}

func joinDisplayParts(v interface{}) string {
	items, ok := v.([]interface{})
	if !ok {
		return ""
	}
	out := ""
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := m["text"].(string); ok {
			out += text
		}
	}
	return out
}

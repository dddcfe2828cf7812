package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// Formatting builds tsserver's "format" request for the document's entire
// span, for textDocument/formatting.
func Formatting(params *protocol3.DocumentFormattingParams, totalUTF16Length int) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "format",
			"arguments": map[string]interface{}{
				"file":      path,
				"line":      1,
				"offset":    1,
				"endLine":   1 << 30,
				"endOffset": totalUTF16Length,
			},
		},
		OnResponse: formattingAdapter,
	}
}

func formattingAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	items, _ := payload["body"].([]interface{})
	edits := make([]protocol3.TextEdit, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		r, _ := rangeFromTSServerFields(m)
		newText, _ := m["newText"].(string)
		edits = append(edits, protocol3.TextEdit{Range: r, NewText: newText})
	}
	return tsbproto.Ready(edits)
}

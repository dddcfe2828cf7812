package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/document"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// InlayHintKind and LSPInlayHint live here rather than in the glsp
// protocol package because inlay hints postdate the 3.16 schema; the JSON
// shapes below match the 3.17 wire format the clients expect.
type InlayHintKind int

const (
	InlayHintKindType      InlayHintKind = 1
	InlayHintKindParameter InlayHintKind = 2
)

// LSPInlayHint is the wire shape replied to textDocument/inlayHint.
type LSPInlayHint struct {
	Position     protocol3.Position `json:"position"`
	Label        string             `json:"label"`
	Kind         *InlayHintKind     `json:"kind,omitempty"`
	PaddingLeft  *bool              `json:"paddingLeft,omitempty"`
	PaddingRight *bool              `json:"paddingRight,omitempty"`
}

// InlayHint builds tsserver's "provideInlayHints" request from a
// precomputed document text span.
func InlayHint(uri string, span document.TextSpan) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(uri)
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityLow,
		Payload: map[string]interface{}{
			"command": "provideInlayHints",
			"arguments": map[string]interface{}{
				"file":   path,
				"start":  span.Start,
				"length": span.Length,
			},
		},
		OnResponse: inlayHintAdapter,
	}
}

func inlayHintAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	entries, _ := payload["body"].([]interface{})
	hints := make([]LSPInlayHint, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		hint, ok := convertInlayHint(m)
		if !ok {
			continue
		}
		hints = append(hints, hint)
	}
	return tsbproto.Ready(hints)
}

func convertInlayHint(m map[string]interface{}) (LSPInlayHint, bool) {
	pos, ok := positionField(m, "position")
	if !ok {
		return LSPInlayHint{}, false
	}
	label, ok := renderInlayLabel(m)
	if !ok {
		return LSPInlayHint{}, false
	}

	hint := LSPInlayHint{
		Position: pos,
		Label:    label,
	}

	switch stringField(m, "kind") {
	case "Type":
		k := InlayHintKindType
		hint.Kind = &k
	case "Parameter":
		k := InlayHintKindParameter
		hint.Kind = &k
	}

	if v, ok := m["whitespaceBefore"].(bool); ok {
		hint.PaddingLeft = &v
	}
	if v, ok := m["whitespaceAfter"].(bool); ok {
		hint.PaddingRight = &v
	}

	return hint, true
}

func renderInlayLabel(m map[string]interface{}) (string, bool) {
	if text, ok := m["text"].(string); ok && text != "" {
		return text, true
	}
	if buffer := joinDisplayParts(m["displayParts"]); buffer != "" {
		return buffer, true
	}
	return "", false
}

package adapters

import (
	"fmt"
	"strings"

	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// Hover builds the "quickinfo" RequestSpec for textDocument/hover.
func Hover(params *protocol3.HoverParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	ts := coords.ToTSServer(int(params.Position.Line), int(params.Position.Character))

	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "quickinfo",
			"arguments": map[string]interface{}{
				"file":   path,
				"line":   ts.Line,
				"offset": ts.Offset,
			},
		},
		OnResponse: hoverAdapter,
	}
}

func hoverAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready(nil)
	}

	display, _ := body["displayString"].(string)

	var md strings.Builder
	md.WriteString("```typescript\n")
	md.WriteString(strings.TrimSpace(display))
	md.WriteString("\n```")

	if docs := joinDocParts(body["documentation"]); docs != "" {
		md.WriteString("\n\n")
		md.WriteString(docs)
	}

	for _, tag := range tagList(body["tags"]) {
		md.WriteString(fmt.Sprintf("\n\n_@%s_", tag.name))
		if tag.text != "" {
			md.WriteString(" — " + tag.text)
		}
	}

	kind := protocol3.MarkupKindMarkdown
	hover := protocol3.Hover{
		Contents: protocol3.MarkupContent{Kind: kind, Value: md.String()},
	}
	if r, ok := rangeFromTSServerFields(body); ok {
		hover.Range = &r
	}

	return tsbproto.Ready(hover)
}

func joinDocParts(v interface{}) string {
	items, ok := v.([]interface{})
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := m["text"].(string); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

type docTag struct {
	name string
	text string
}

func tagList(v interface{}) []docTag {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []docTag
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		out = append(out, docTag{name: name, text: joinDocParts(m["text"])})
	}
	return out
}

func rangeFromTSServerFields(body map[string]interface{}) (protocol3.Range, bool) {
	start, ok1 := positionField(body, "start")
	end, ok2 := positionField(body, "end")
	if !ok1 || !ok2 {
		return protocol3.Range{}, false
	}
	return protocol3.Range{Start: start, End: end}, true
}

func positionField(m map[string]interface{}, key string) (protocol3.Position, bool) {
	pos, ok := m[key].(map[string]interface{})
	if !ok {
		return protocol3.Position{}, false
	}
	line, _ := pos["line"].(float64)
	offset, _ := pos["offset"].(float64)
	l, c := coords.FromTSServer(coords.TSPosition{Line: int(line), Offset: int(offset)})
	return protocol3.Position{Line: protocol3.UInteger(l), Character: protocol3.UInteger(c)}, true
}

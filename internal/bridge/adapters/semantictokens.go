package adapters

import (
	"sort"
	"strings"

	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// SemanticTokensFull builds tsserver's "encodedSemanticClassifications-full"
// request for the whole document.
func SemanticTokensFull(params *protocol3.SemanticTokensParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityLow,
		Payload: map[string]interface{}{
			"command": "encodedSemanticClassifications-full",
			"arguments": map[string]interface{}{
				"file":   path,
				"format": "2020",
			},
		},
		OnResponse: semanticTokensAdapter,
	}
}

// SemanticTokensRange builds the same command scoped to a range, clamping
// the requested length (lines * 10000, capped at 5,000,000) rather than
// trusting the client's range arithmetic.
func SemanticTokensRange(params *protocol3.SemanticTokensRangeParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	start := coords.ToTSServer(int(params.Range.Start.Line), int(params.Range.Start.Character))
	length := clampRangeLength(int(params.Range.Start.Line), int(params.Range.End.Line))

	return tsbproto.RequestSpec{
		Route:    rpc.RouteSyntax,
		Priority: rpc.PriorityLow,
		Payload: map[string]interface{}{
			"command": "encodedSemanticClassifications-full",
			"arguments": map[string]interface{}{
				"file":   path,
				"format": "2020",
				"start":  map[string]interface{}{"line": start.Line, "offset": start.Offset},
				"length": length,
			},
		},
		OnResponse: semanticTokensAdapter,
	}
}

func clampRangeLength(startLine, endLine int) int {
	lines := endLine - startLine + 1
	if lines < 1 {
		lines = 1
	}
	length := lines * 10000
	if length > 5_000_000 {
		length = 5_000_000
	}
	return length
}

type semanticTokenRow struct {
	line, start, length, tokenType, modifiers int
}

func semanticTokensAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready(protocol3.SemanticTokens{Data: []protocol3.UInteger{}})
	}
	spans, _ := body["spans"].([]interface{})

	var rows []semanticTokenRow
	for _, s := range spans {
		m, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		classification := stringField(m, "classificationType")
		tokenType, ok := tokenTypeIndex(classification)
		if !ok {
			continue
		}
		modifierRaw := m["classificationModifier"]
		if modifierRaw == nil {
			modifierRaw = m["classificationModifiers"]
		}
		textSpan, _ := m["textSpan"].(map[string]interface{})
		start, ok1 := positionField(textSpan, "start")
		end, ok2 := positionField(textSpan, "end")
		if !ok1 || !ok2 || start.Line != end.Line {
			continue
		}
		length := int(end.Character) - int(start.Character)
		if length <= 0 {
			continue
		}
		rows = append(rows, semanticTokenRow{
			line:      int(start.Line),
			start:     int(start.Character),
			length:    length,
			tokenType: tokenType,
			modifiers: modifierMask(modifierRaw),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].line != rows[j].line {
			return rows[i].line < rows[j].line
		}
		return rows[i].start < rows[j].start
	})

	data := make([]protocol3.UInteger, 0, len(rows)*5)
	prevLine, prevStart := 0, 0
	for _, r := range rows {
		deltaLine := r.line - prevLine
		deltaStart := r.start
		if deltaLine == 0 {
			deltaStart = r.start - prevStart
		}
		data = append(data,
			protocol3.UInteger(deltaLine),
			protocol3.UInteger(deltaStart),
			protocol3.UInteger(r.length),
			protocol3.UInteger(r.tokenType),
			protocol3.UInteger(r.modifiers),
		)
		prevLine, prevStart = r.line, r.start
	}

	return tsbproto.Ready(protocol3.SemanticTokens{Data: data})
}

// tokenTypeIndex normalizes a tsserver classification string into the
// legend's index. Classifications outside the enumerated set return
// false and are dropped; no fallback token type is assigned.
func tokenTypeIndex(classification string) (int, bool) {
	var normalized string
	switch classification {
	case "module", "namespace":
		normalized = "namespace"
	case "class", "class name", "local class name":
		normalized = "class"
	case "enum", "enum name", "local enum name":
		normalized = "enum"
	case "interface", "interface name":
		normalized = "interface"
	case "type", "type alias":
		normalized = "type"
	case "type parameter name":
		normalized = "typeParameter"
	case "enum member name":
		normalized = "enumMember"
	case "parameter", "parameter name":
		normalized = "parameter"
	case "function", "function name":
		normalized = "function"
	case "member function name", "member accessor name", "method":
		normalized = "method"
	case "property", "property declaration", "property name", "member":
		normalized = "property"
	case "var", "let", "const", "variable", "variable name", "local variable name":
		normalized = "variable"
	case "keyword":
		normalized = "keyword"
	case "string", "string literal":
		normalized = "string"
	case "numeric literal", "number":
		normalized = "number"
	default:
		return 0, false
	}
	for i, ty := range SemanticTokenTypes {
		if ty == normalized {
			return i, true
		}
	}
	return 0, false
}

func modifierMask(raw interface{}) int {
	text, _ := raw.(string)
	if text == "" {
		return 0
	}
	mask := 0
	for _, modifier := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' }) {
		var normalized string
		switch modifier {
		case "declare", "declaration":
			normalized = "declaration"
		case "definition":
			normalized = "definition"
		case "readonly":
			normalized = "readonly"
		case "static":
			normalized = "static"
		case "async":
			normalized = "async"
		case "abstract":
			normalized = "abstract"
		case "deprecated":
			normalized = "deprecated"
		case "defaultLibrary":
			normalized = "defaultLibrary"
		default:
			continue
		}
		for i, m := range SemanticTokenModifiers {
			if m == normalized {
				mask |= 1 << i
			}
		}
	}
	return mask
}

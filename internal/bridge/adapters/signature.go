package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// SignatureHelp builds tsserver's "signatureHelp" request.
func SignatureHelp(params *protocol3.SignatureHelpParams) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(string(params.TextDocument.URI))
	ts := coords.ToTSServer(int(params.Position.Line), int(params.Position.Character))
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "signatureHelp",
			"arguments": map[string]interface{}{
				"file":   path,
				"line":   ts.Line,
				"offset": ts.Offset,
			},
		},
		OnResponse: signatureHelpAdapter,
	}
}

func signatureHelpAdapter(payload map[string]interface{}, _ interface{}) (tsbproto.AdapterResult, error) {
	body, _ := payload["body"].(map[string]interface{})
	if body == nil {
		return tsbproto.Ready(nil)
	}

	items, _ := body["items"].([]interface{})
	sigs := make([]protocol3.SignatureInformation, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		label := joinDisplayParts(m["prefixDisplayParts"])

		params, _ := m["parameters"].([]interface{})
		var sigParams []protocol3.ParameterInformation
		var labelParts []string
		for i, p := range params {
			pm, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			text := joinDisplayParts(pm["displayParts"])
			labelParts = append(labelParts, text)
			sigParams = append(sigParams, protocol3.ParameterInformation{Label: text})
			_ = i
		}
		label += joinSeparator(labelParts, m["separatorDisplayParts"])
		label += joinDisplayParts(m["suffixDisplayParts"])

		sigs = append(sigs, protocol3.SignatureInformation{
			Label:      label,
			Parameters: sigParams,
		})
	}

	active := protocol3.UInteger(0)
	if n, ok := body["selectedItemIndex"].(float64); ok {
		active = protocol3.UInteger(n)
	}
	activeParam := protocol3.UInteger(0)
	if n, ok := body["argumentIndex"].(float64); ok {
		activeParam = protocol3.UInteger(n)
	}

	return tsbproto.Ready(protocol3.SignatureHelp{
		Signatures:      sigs,
		ActiveSignature: &active,
		ActiveParameter: &activeParam,
	})
}

func joinSeparator(parts []string, sepRaw interface{}) string {
	sep := ", "
	if s := joinDisplayParts(sepRaw); s != "" {
		sep = s
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

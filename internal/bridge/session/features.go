package session

import (
	"bytes"
	"context"
	"encoding/json"

	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// The feature handlers below share one shape: build the RequestSpec with
// the pure adapter for the method, push it through the broker, and block
// until the pump resolves it. The adapter already produced the final LSP
// value, so handlers whose glsp signature returns `any` hand the raw JSON
// straight back; typed signatures unmarshal into the expected struct.

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, jsonNull)
}

func unmarshalReply[T any](raw json.RawMessage) (*T, error) {
	if isNull(raw) {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, terrors.Wrap(err, "decode adapter reply")
	}
	return &out, nil
}

func (s *Session) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.Hover(params))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.Hover](raw)
}

func (s *Session) TextDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.Definition(params))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Session) TextDocumentTypeDefinition(ctx *glsp.Context, params *protocol.TypeDefinitionParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.TypeDefinition(params))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Session) TextDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.References(params))
	if err != nil {
		return nil, err
	}
	locs, err := unmarshalReply[[]protocol.Location](raw)
	if err != nil || locs == nil {
		return nil, err
	}
	return *locs, nil
}

func (s *Session) TextDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.DocumentSymbol(params))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Session) WorkspaceSymbol(ctx *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.WorkspaceSymbol(params))
	if err != nil {
		return nil, err
	}
	syms, err := unmarshalReply[[]protocol.SymbolInformation](raw)
	if err != nil || syms == nil {
		return nil, err
	}
	return *syms, nil
}

func (s *Session) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.Completion(params))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// CompletionItemResolve recovers the originating file and position from
// the item's Data payload (stamped by the completion adapter), since a
// resolve request arrives as a fresh client request with no dispatch to
// correlate against.
func (s *Session) CompletionItemResolve(ctx *glsp.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	s.captureTransport(ctx)

	data, _ := item.Data.(map[string]interface{})
	file, _ := data["file"].(string)
	if file == "" {
		return item, nil
	}
	line := intField(data, "line")
	offset := intField(data, "offset")

	raw, err := s.request(context.Background(), adapters.CompletionResolve(item, file, line, offset))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.CompletionItem](raw)
}

func (s *Session) TextDocumentSignatureHelp(ctx *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.SignatureHelp(params))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.SignatureHelp](raw)
}

func (s *Session) TextDocumentCodeAction(ctx *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.CodeAction(params))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Session) CodeActionResolve(ctx *glsp.Context, action *protocol.CodeAction) (*protocol.CodeAction, error) {
	s.captureTransport(ctx)
	resolved, err := adapters.CodeActionResolve(action)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (s *Session) TextDocumentRename(ctx *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.Rename(params))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.WorkspaceEdit](raw)
}

func (s *Session) TextDocumentPrepareRename(ctx *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.PrepareRename(params))
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	return raw, nil
}

func (s *Session) TextDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.captureTransport(ctx)

	length := fallbackSpanLength
	if s.ready() {
		if l, ok := s.documents.UTF16Length(string(params.TextDocument.URI)); ok {
			length = l
		}
	}
	raw, err := s.request(context.Background(), adapters.Formatting(params, length))
	if err != nil {
		return nil, err
	}
	edits, err := unmarshalReply[[]protocol.TextEdit](raw)
	if err != nil || edits == nil {
		return nil, err
	}
	return *edits, nil
}

func (s *Session) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.SemanticTokensFull(params))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.SemanticTokens](raw)
}

func (s *Session) TextDocumentSemanticTokensRange(ctx *glsp.Context, params *protocol.SemanticTokensRangeParams) (any, error) {
	s.captureTransport(ctx)
	raw, err := s.request(context.Background(), adapters.SemanticTokensRange(params))
	if err != nil {
		return nil, err
	}
	return unmarshalReply[protocol.SemanticTokens](raw)
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

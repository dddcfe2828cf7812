package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/document"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

const (
	methodInlayHint        = "textDocument/inlayHint"
	methodInlayHintRefresh = "workspace/inlayHint/refresh"
	methodControl          = "ts-bridge/control"
)

// fallbackSpanLength is the whole-document span length used when the
// document store has no snapshot for the target URI.
const fallbackSpanLength = 1 << 24

// inlayHintParams is the textDocument/inlayHint request shape; defined
// locally since inlay hints postdate the 3.16 protocol package.
type inlayHintParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}

type inlayCacheKey struct {
	uri      string
	rangeKey string
}

// inlayState holds the session-local inlay-hint cache and the flag
// recording which preference mode tsserver was last configured for.
type inlayState struct {
	mu            sync.Mutex
	configuredFor *bool
	cache         map[inlayCacheKey]json.RawMessage
}

func newInlayState() *inlayState {
	return &inlayState{cache: make(map[inlayCacheKey]json.RawMessage)}
}

func (st *inlayState) get(key inlayCacheKey) (json.RawMessage, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	v, ok := st.cache[key]
	return v, ok
}

func (st *inlayState) put(key inlayCacheKey, value json.RawMessage) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cache[key] = value
}

// invalidate drops every cache entry for one URI; a didChange anywhere in
// the file moves all of its hints.
func (st *inlayState) invalidate(uri string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for key := range st.cache {
		if key.uri == uri {
			delete(st.cache, key)
		}
	}
}

func (st *inlayState) clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cache = make(map[inlayCacheKey]json.RawMessage)
}

// resetConfigured forgets which preference mode tsserver last saw, forcing
// a configure round before the next hint request (used after restarts).
func (st *inlayState) resetConfigured() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.configuredFor = nil
}

// needsConfigure reports whether tsserver's preferences are out of sync
// with enabled, marking them synced if so.
func (st *inlayState) needsConfigure(enabled bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.configuredFor != nil && *st.configuredFor == enabled {
		return false
	}
	v := enabled
	st.configuredFor = &v
	return true
}

// textDocumentInlayHint serves textDocument/inlayHint: empty when the
// feature is disabled, cached when an identical request was already
// answered, otherwise one provideInlayHints round-trip whose reply is
// cached by the post-process hook.
func (s *Session) textDocumentInlayHint(ctx *glsp.Context, params *inlayHintParams) (any, error) {
	s.captureTransport(ctx)

	s.mu.Lock()
	enabled := s.settings.EnableInlayHints
	s.mu.Unlock()

	if !enabled {
		return []adapters.LSPInlayHint{}, nil
	}

	uri := string(params.TextDocument.URI)
	key := inlayCacheKey{uri: uri, rangeKey: rangeKeyOf(params.Range)}
	if cached, ok := s.inlay.get(key); ok {
		return cached, nil
	}

	if s.inlay.needsConfigure(true) {
		configure := tsbproto.NotificationSpec{
			Route:    rpc.RouteBoth,
			Priority: rpc.PriorityConst,
			Payload:  adapters.ConfigureRequest(true),
		}
		if err := s.notification(configure); err != nil {
			s.inlay.resetConfigured()
			return nil, err
		}
	}

	span, ok := s.documents.SpanForRange(uri, document.Range{
		Start: document.Position{Line: int(params.Range.Start.Line), Character: int(params.Range.Start.Character)},
		End:   document.Position{Line: int(params.Range.End.Line), Character: int(params.Range.End.Character)},
	})
	if !ok {
		span = document.TextSpan{Start: 0, Length: fallbackSpanLength}
	}

	spec := adapters.InlayHint(uri, span)
	spec.PostProcess = func(value json.RawMessage, _ interface{}) {
		s.inlay.put(key, value)
	}

	raw, err := s.request(context.Background(), spec)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func rangeKeyOf(r protocol.Range) string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}

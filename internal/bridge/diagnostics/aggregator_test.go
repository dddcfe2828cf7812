package diagnostics

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

func diag(text string) map[string]interface{} {
	return map[string]interface{}{
		"text":     text,
		"category": "error",
		"start":    map[string]interface{}{"line": float64(1), "offset": float64(1)},
		"end":      map[string]interface{}{"line": float64(1), "offset": float64(2)},
	}
}

func TestExpectedKindsForServer(t *testing.T) {
	assert.ElementsMatch(t, []Kind{KindSyntax, KindSuggestion}, expectedKindsFor(rpc.ServerKindSyntax))
	assert.ElementsMatch(t, []Kind{KindSemantic}, expectedKindsFor(rpc.ServerKindSemantic))
}

func TestEventKindRecognizesNames(t *testing.T) {
	k, ok := EventKind("syntaxDiag")
	require.True(t, ok)
	assert.Equal(t, KindSyntax, k)

	_, ok = EventKind("unknownEvent")
	assert.False(t, ok)
}

func TestIsRequestCompleted(t *testing.T) {
	assert.True(t, IsRequestCompleted("requestCompleted"))
	assert.False(t, IsRequestCompleted("syntaxDiag"))
}

func TestHandleEventSaturatesAndPublishesMergedOrder(t *testing.T) {
	agg := NewAggregator()
	agg.StartGeterr([]Receipt{
		{Server: rpc.ServerKindSyntax, Seq: 1},
		{Server: rpc.ServerKindSemantic, Seq: 1},
	})

	var calls int
	var gotURI string
	var gotDiags []protocol.Diagnostic
	publish := Publisher(func(uri string, ds []protocol.Diagnostic) {
		calls++
		gotURI = uri
		gotDiags = ds
	})

	agg.HandleEvent(rpc.ServerKindSyntax, "syntaxDiag", map[string]interface{}{
		"file":        "/w/a.ts",
		"request_seq": float64(1),
		"diagnostics": []interface{}{diag("syntax-error")},
	}, publish)
	assert.Equal(t, 0, calls, "not yet saturated: suggestion and semantic still outstanding")

	agg.HandleEvent(rpc.ServerKindSyntax, "suggestionDiag", map[string]interface{}{
		"file":        "/w/a.ts",
		"request_seq": float64(1),
		"diagnostics": []interface{}{},
	}, publish)
	assert.Equal(t, 0, calls)

	agg.HandleEvent(rpc.ServerKindSemantic, "semanticDiag", map[string]interface{}{
		"file":        "/w/a.ts",
		"request_seq": float64(1),
		"diagnostics": []interface{}{diag("semantic-error")},
	}, publish)

	require.Equal(t, 1, calls)
	assert.Equal(t, "file:///w/a.ts", gotURI)
	require.Len(t, gotDiags, 2, "syntax + semantic diagnostics, suggestion was empty")
	assert.Equal(t, "syntax-error", gotDiags[0].Message)
	assert.Equal(t, "semantic-error", gotDiags[1].Message)
}

func TestHandleEventRequestCompletedForcesFlush(t *testing.T) {
	agg := NewAggregator()
	agg.StartGeterr([]Receipt{{Server: rpc.ServerKindSyntax, Seq: 2}})

	var calls int
	var gotLen int
	publish := Publisher(func(uri string, ds []protocol.Diagnostic) {
		calls++
		gotLen = len(ds)
	})

	agg.HandleEvent(rpc.ServerKindSyntax, "syntaxDiag", map[string]interface{}{
		"file":        "/w/b.ts",
		"request_seq": float64(2),
		"diagnostics": []interface{}{diag("one")},
	}, publish)
	assert.Equal(t, 0, calls, "suggestion still outstanding")

	agg.HandleEvent(rpc.ServerKindSyntax, "requestCompleted", map[string]interface{}{
		"request_seq": float64(2),
	}, publish)

	require.Equal(t, 1, calls)
	assert.Equal(t, 1, gotLen, "suggestion never arrived; only syntax diagnostic flushed")
}

func TestHandleEventFallsBackToFIFOWithoutRequestSeq(t *testing.T) {
	agg := NewAggregator()
	agg.StartGeterr([]Receipt{{Server: rpc.ServerKindSemantic, Seq: 5}})

	var calls int
	publish := Publisher(func(uri string, ds []protocol.Diagnostic) { calls++ })

	// No request_seq field: correlation must fall back to the head of the
	// per-server outstanding-seq FIFO.
	agg.HandleEvent(rpc.ServerKindSemantic, "semanticDiag", map[string]interface{}{
		"file":        "/w/c.ts",
		"diagnostics": []interface{}{diag("x")},
	}, publish)

	assert.Equal(t, 1, calls)
}

func TestProgressResetsWhenNoEntriesRemain(t *testing.T) {
	agg := NewAggregator()
	completed, expected := agg.Progress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 0, expected)
}

func TestEmptyCombinedDiagnosticsDropsCache(t *testing.T) {
	agg := NewAggregator()
	agg.StartGeterr([]Receipt{{Server: rpc.ServerKindSyntax, Seq: 9}})

	var lastLen = -1
	publish := Publisher(func(uri string, ds []protocol.Diagnostic) { lastLen = len(ds) })

	agg.HandleEvent(rpc.ServerKindSyntax, "syntaxDiag", map[string]interface{}{
		"file":        "/w/clean.ts",
		"request_seq": float64(9),
		"diagnostics": []interface{}{},
	}, publish)
	agg.HandleEvent(rpc.ServerKindSyntax, "suggestionDiag", map[string]interface{}{
		"file":        "/w/clean.ts",
		"request_seq": float64(9),
		"diagnostics": []interface{}{},
	}, publish)

	require.Equal(t, 0, lastLen)
	_, ok := agg.cache["file:///w/clean.ts"]
	assert.False(t, ok, "empty combined diagnostics should drop the per-URI cache entry")
}

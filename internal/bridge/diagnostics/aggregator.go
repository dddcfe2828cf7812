// Package diagnostics aggregates tsserver's event-driven syntaxDiag /
// semanticDiag / suggestionDiag / requestCompleted stream into LSP
// publishDiagnostics notifications, one per outstanding geterr request.
package diagnostics

import (
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// Kind is one of the three diagnostic categories tsserver reports.
type Kind int

const (
	KindSyntax Kind = iota
	KindSemantic
	KindSuggestion
)

const requestCompletedEvent = "requestCompleted"

var eventKinds = map[string]Kind{
	"syntaxDiag":     KindSyntax,
	"semanticDiag":   KindSemantic,
	"suggestionDiag": KindSuggestion,
}

// EventKind maps a tsserver event name to its Kind, if it is a recognized
// diagnostics event.
func EventKind(eventName string) (Kind, bool) {
	k, ok := eventKinds[eventName]
	return k, ok
}

// IsRequestCompleted reports whether eventName is tsserver's
// requestCompleted event, which forces a flush of whatever arrived.
func IsRequestCompleted(eventName string) bool {
	return eventName == requestCompletedEvent
}

// expectedKindsFor returns the diagnostic kinds a geterr dispatched to the
// given server kind is expected to eventually report.
func expectedKindsFor(server rpc.ServerKind) []Kind {
	if server == rpc.ServerKindSemantic {
		return []Kind{KindSemantic}
	}
	return []Kind{KindSyntax, KindSuggestion}
}

// entry tracks one outstanding geterr request's expected/arrived kinds and
// the set of URIs it has touched so far.
type entry struct {
	expected    map[Kind]bool
	arrived     map[Kind]bool
	touchedURIs map[string]bool
}

func (e *entry) saturated() bool {
	for k := range e.expected {
		if !e.arrived[k] {
			return false
		}
	}
	return true
}

// fileCache holds the last-seen diagnostics per kind for one URI, retained
// across geterr round-trips so an incremental update can overlay only the
// kinds whose new geterr arrives.
type fileCache struct {
	byKind map[Kind][]protocol.Diagnostic
}

// Publisher is invoked once per URI when a pending entry saturates or is
// force-flushed by requestCompleted.
type Publisher func(uri string, diagnostics []protocol.Diagnostic)

// Aggregator is session-local: one instance per LSP connection.
type Aggregator struct {
	mu sync.Mutex

	// pending indexes outstanding entries by (server, seq).
	pending map[rpc.ServerKind]map[int64]*entry
	// fifo is the insertion-ordered list of outstanding seqs per server,
	// used as the correlation fallback when an event lacks request_seq.
	fifo map[rpc.ServerKind][]int64

	cache map[string]*fileCache

	// live holds every distinct outstanding entry exactly once, for
	// Progress() accounting; entries are removed in resolve.
	live map[*entry]struct{}
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		pending: map[rpc.ServerKind]map[int64]*entry{
			rpc.ServerKindSyntax:   {},
			rpc.ServerKindSemantic: {},
		},
		fifo:  map[rpc.ServerKind][]int64{},
		cache: map[string]*fileCache{},
		live:  map[*entry]struct{}{},
	}
}

// StartGeterr registers one outstanding geterr request, given the
// dispatch receipts returned by the broker (one per server the request
// was actually routed to).
func (a *Aggregator) StartGeterr(receipts []Receipt) {
	a.mu.Lock()
	defer a.mu.Unlock()

	shared := &entry{
		expected:    map[Kind]bool{},
		arrived:     map[Kind]bool{},
		touchedURIs: map[string]bool{},
	}
	for _, r := range receipts {
		for _, k := range expectedKindsFor(r.Server) {
			shared.expected[k] = true
		}
	}

	for _, r := range receipts {
		a.pending[r.Server][r.Seq] = shared
		a.fifo[r.Server] = append(a.fifo[r.Server], r.Seq)
	}
	a.live[shared] = struct{}{}
}

// Receipt names one (server, seq) a request was actually dispatched to.
type Receipt struct {
	Server rpc.ServerKind
	Seq    int64
}

// HandleEvent processes one tsserver diagnostics event frame and invokes
// publish for every URI whose pending entry saturates as a result.
func (a *Aggregator) HandleEvent(server rpc.ServerKind, eventName string, body map[string]interface{}, publish Publisher) {
	a.mu.Lock()
	defer a.mu.Unlock()

	requestSeq, hasSeq := asInt64(body["request_seq"])

	if IsRequestCompleted(eventName) {
		seq := requestSeq
		if !hasSeq {
			seq, hasSeq = a.headOf(server)
			if !hasSeq {
				return
			}
		}
		e := a.pending[server][seq]
		if e == nil {
			return
		}
		for k := range e.expected {
			e.arrived[k] = true
		}
		a.resolve(server, seq, e, publish)
		return
	}

	kind, ok := EventKind(eventName)
	if !ok {
		return
	}

	seq := requestSeq
	if !hasSeq {
		seq, hasSeq = a.headOf(server)
		if !hasSeq {
			return
		}
	}
	e := a.pending[server][seq]
	if e == nil {
		return
	}

	file, _ := body["file"].(string)
	uri := coords.FilePathToURI(file)

	diags := convertDiagnostics(body["diagnostics"])
	fc, ok := a.cache[uri]
	if !ok {
		fc = &fileCache{byKind: map[Kind][]protocol.Diagnostic{}}
		a.cache[uri] = fc
	}
	fc.byKind[kind] = diags

	e.touchedURIs[uri] = true
	e.arrived[kind] = true

	if e.saturated() {
		a.resolve(server, seq, e, publish)
	}
}

// resolve emits combined diagnostics for every URI the entry touched, then
// removes it from the pending index.
func (a *Aggregator) resolve(server rpc.ServerKind, seq int64, e *entry, publish Publisher) {
	for uri := range e.touchedURIs {
		fc := a.cache[uri]
		combined := mergeOrdered(fc)
		if len(combined) == 0 {
			delete(a.cache, uri)
		}
		if publish != nil {
			publish(uri, combined)
		}
	}

	// Remove every (server, seq) pair that pointed at this shared entry.
	for sk, byseq := range a.pending {
		for s, candidate := range byseq {
			if candidate == e {
				delete(byseq, s)
				a.removeFromFIFO(sk, s)
			}
		}
	}
	delete(a.live, e)
}

func (a *Aggregator) headOf(server rpc.ServerKind) (int64, bool) {
	q := a.fifo[server]
	if len(q) == 0 {
		return 0, false
	}
	return q[0], true
}

func (a *Aggregator) removeFromFIFO(server rpc.ServerKind, seq int64) {
	q := a.fifo[server]
	for i, s := range q {
		if s == seq {
			a.fifo[server] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// Progress returns (completed, expected) kind-arrival counts summed across
// all outstanding entries, for work-done progress reporting. Resets to
// (0, 0) once no entries remain.
func (a *Aggregator) Progress() (completed, expected int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for e := range a.live {
		expected += len(e.expected)
		for k := range e.arrived {
			if e.expected[k] {
				completed++
			}
		}
	}
	return completed, expected
}

// ClearFile drops any cached diagnostics for uri, called on didClose so
// stale diagnostics are never re-emitted for a closed document.
func (a *Aggregator) ClearFile(uri string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, uri)
}

func mergeOrdered(fc *fileCache) []protocol.Diagnostic {
	if fc == nil {
		return nil
	}
	var out []protocol.Diagnostic
	out = append(out, fc.byKind[KindSyntax]...)
	out = append(out, fc.byKind[KindSemantic]...)
	out = append(out, fc.byKind[KindSuggestion]...)
	return out
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func convertDiagnostics(raw interface{}) []protocol.Diagnostic {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]protocol.Diagnostic, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, convertOne(m))
	}
	return out
}

func convertOne(m map[string]interface{}) protocol.Diagnostic {
	severity := severityFor(stringField(m, "category"))
	source := "tsserver"

	var code interface{}
	if c, ok := m["code"]; ok {
		code = c
	}

	return protocol.Diagnostic{
		Range:    rangeFromTS(m),
		Severity: &severity,
		Code:     codeUnion(code),
		Source:   &source,
		Message:  stringField(m, "text"),
	}
}

func codeUnion(code interface{}) *protocol.IntegerOrString {
	if code == nil {
		return nil
	}
	switch v := code.(type) {
	case float64:
		i := protocol.Integer(v)
		return &protocol.IntegerOrString{Value: i}
	case string:
		return &protocol.IntegerOrString{Value: v}
	default:
		return nil
	}
}

func severityFor(category string) protocol.DiagnosticSeverity {
	switch category {
	case "error":
		return protocol.DiagnosticSeverityError
	case "warning":
		return protocol.DiagnosticSeverityWarning
	case "suggestion":
		return protocol.DiagnosticSeverityHint
	case "message":
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func rangeFromTS(m map[string]interface{}) protocol.Range {
	start := positionFromTS(m["start"])
	end := positionFromTS(m["end"])
	return protocol.Range{Start: start, End: end}
}

func positionFromTS(v interface{}) protocol.Position {
	m, ok := v.(map[string]interface{})
	if !ok {
		return protocol.Position{}
	}
	line, _ := asInt64(m["line"])
	offset, _ := asInt64(m["offset"])
	l, c := coords.FromTSServer(coords.TSPosition{Line: int(line), Offset: int(offset)})
	return protocol.Position{Line: protocol.UInteger(l), Character: protocol.UInteger(c)}
}

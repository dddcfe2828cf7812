// Package pending implements the Pending Requests Table: the session-local
// map from (server, seq) to the adapter/context/post-process needed to
// resolve a tsserver reply back into an LSP response, including chained
// multi-step adapters.
package pending

import (
	"encoding/json"
	"sync"

	"github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// Entry is what one (server, seq) resolves to.
type Entry struct {
	RequestID   json.RawMessage
	Adapter     protocol.ResponseAdapter
	Context     interface{}
	PostProcess protocol.PostProcess
}

type key struct {
	server rpc.ServerKind
	seq    int64
}

// Table is session-local: only the owning session goroutine reads or
// writes it.
type Table struct {
	mu      sync.Mutex
	entries map[key]Entry
}

// New returns an empty pending table.
func New() *Table {
	return &Table{entries: make(map[key]Entry)}
}

// Insert tracks one dispatch receipt. A request routed to Both inserts
// twice with the same RequestID so either reply resolves it.
func (t *Table) Insert(server rpc.ServerKind, seq int64, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key{server, seq}] = entry
}

// Take looks up and removes the entry for (server, seq). A miss (unknown
// pair, or already resolved) returns ok=false and is a silent drop; the
// pair may belong to a sibling session sharing the same broker.
func (t *Table) Take(server rpc.ServerKind, seq int64) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{server, seq}
	e, ok := t.entries[k]
	if ok {
		delete(t.entries, k)
	}
	return e, ok
}

// DrainAll removes and returns every outstanding entry, used when a
// Restarting broadcast requires failing every pending request for this
// session.
func (t *Table) DrainAll() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	for k, e := range t.entries {
		out = append(out, e)
		delete(t.entries, k)
	}
	return out
}

// Len reports the number of outstanding entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

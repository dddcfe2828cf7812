package session

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/broker"
	"github.com/chojs23/ts-bridge/internal/bridge/diagnostics"
	"github.com/chojs23/ts-bridge/internal/bridge/pending"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// request dispatches spec to the broker and blocks the calling handler
// goroutine until the pump goroutine resolves it (or ctx is cancelled).
// This is the bridge between glsp's synchronous Handler methods and the
// broker's asynchronous reply delivery: response adapters run on the
// session's own goroutine (the pump), never on the broker's, so one
// session's slow adapter cannot stall another session's dispatches.
func (s *Session) request(ctx context.Context, spec tsbproto.RequestSpec) (json.RawMessage, error) {
	token := uuid.NewString()
	ch := make(chan waiterResult, 1)

	s.waitersMu.Lock()
	s.waiters[token] = ch
	s.waitersMu.Unlock()

	if err := s.dispatchWithToken(token, spec); err != nil {
		s.waitersMu.Lock()
		delete(s.waiters, token)
		s.waitersMu.Unlock()
		return nil, err
	}

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		s.waitersMu.Lock()
		delete(s.waiters, token)
		s.waitersMu.Unlock()
		return nil, ctx.Err()
	}
}

// dispatchWithToken inserts a pending entry for every receipt the broker
// hands back, carrying token forward as the entry's RequestID so a
// chained Continue result can reuse it across dispatch rounds.
func (s *Session) dispatchWithToken(token string, spec tsbproto.RequestSpec) error {
	s.mu.Lock()
	initialized := s.initialized
	bundle := s.bundle
	s.mu.Unlock()
	if !initialized {
		return terrors.New("session not initialized")
	}

	receipts, err := bundle.Handle.Dispatch(spec.Route, spec.Payload, spec.Priority)
	if err != nil {
		return err
	}

	requestID, _ := json.Marshal(token)
	entry := pending.Entry{
		RequestID:   requestID,
		Adapter:     spec.OnResponse,
		Context:     spec.Context,
		PostProcess: spec.PostProcess,
	}
	for _, r := range receipts {
		s.pending.Insert(r.Server, r.Seq, entry)
	}
	return nil
}

// notification dispatches a fire-and-forget NotificationSpec with no
// pending-table correlation.
func (s *Session) notification(spec tsbproto.NotificationSpec) error {
	s.mu.Lock()
	initialized := s.initialized
	bundle := s.bundle
	s.mu.Unlock()
	if !initialized {
		return terrors.New("session not initialized")
	}
	_, err := bundle.Handle.Dispatch(spec.Route, spec.Payload, spec.Priority)
	return err
}

// startGeterr dispatches a geterr notification and registers it with the
// diagnostics aggregator so the resulting syntaxDiag/semanticDiag/
// suggestionDiag/requestCompleted events are correlated back to it.
func (s *Session) startGeterr(uris []string) {
	s.mu.Lock()
	bundle := s.bundle
	s.mu.Unlock()

	spec := adapters.GeterrNotification(uris)
	receipts, err := bundle.Handle.Dispatch(spec.Route, spec.Payload, spec.Priority)
	if err != nil {
		s.log.Debugw("geterr dispatch produced no receipts", "error", err)
		return
	}

	diagReceipts := make([]diagnostics.Receipt, 0, len(receipts))
	for _, r := range receipts {
		diagReceipts = append(diagReceipts, diagnostics.Receipt{Server: r.Server, Seq: r.Seq})
	}
	s.diagnostics.StartGeterr(diagReceipts)
	s.reportDiagnosticsProgress()
}

// pump is the session's own goroutine: it owns the pending table and the
// diagnostics aggregator exclusively, reading the broker's fanned-out
// ServerEvent stream and resolving whatever it can.
func (s *Session) pump() {
	s.mu.Lock()
	events := s.bundle.Events
	quit := s.quit
	done := s.pumpDone
	s.mu.Unlock()

	defer close(done)

	for {
		select {
		case <-quit:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case broker.EventFrame:
				s.handleFrame(ev)
			case broker.EventRestarting:
				s.handleRestarting(ev)
			case broker.EventRestarted:
				s.handleRestarted(ev)
			case broker.EventRestartFailed:
				s.handleRestartFailed(ev)
			case broker.EventConfigUpdated:
				s.handleConfigUpdated(ev)
			}
		}
	}
}

func (s *Session) handleFrame(ev broker.ServerEvent) {
	frameType, _ := ev.Frame["type"].(string)

	switch frameType {
	case "event":
		eventName, _ := ev.Frame["event"].(string)
		body, _ := ev.Frame["body"].(map[string]interface{})
		s.diagnostics.HandleEvent(ev.Server, eventName, body, s.publishDiagnostics)
		s.reportDiagnosticsProgress()

	case "response":
		seq, ok := asInt64(ev.Frame["request_seq"])
		if !ok {
			return
		}
		entry, ok := s.pending.Take(ev.Server, seq)
		if !ok {
			return
		}
		s.resolveResponse(entry, ev.Frame)
	}
}

func (s *Session) resolveResponse(entry pending.Entry, frame map[string]interface{}) {
	if success, _ := frame["success"].(bool); !success {
		message, _ := frame["message"].(string)
		if message == "" {
			message = "tsserver request failed"
		}
		s.deliver(entry.RequestID, nil, terrors.New(message))
		return
	}

	if entry.Adapter == nil {
		s.deliver(entry.RequestID, nil, terrors.ErrMissingAdapter)
		return
	}

	result, err := entry.Adapter(frame, entry.Context)
	if err != nil {
		s.deliver(entry.RequestID, nil, terrors.Wrap(err, "adapter failed"))
		return
	}

	if result.Ready {
		if entry.PostProcess != nil {
			entry.PostProcess(result.Value, entry.Context)
		}
		s.deliver(entry.RequestID, result.Value, nil)
		return
	}

	s.continueChain(entry, *result.Next)
}

// continueChain re-dispatches a Continue result's follow-up request,
// reinserting a pending entry that carries the same RequestID forward so
// the eventual Ready result still resolves the original waiter.
func (s *Session) continueChain(prev pending.Entry, next tsbproto.RequestSpec) {
	s.mu.Lock()
	bundle := s.bundle
	s.mu.Unlock()

	receipts, err := bundle.Handle.Dispatch(next.Route, next.Payload, next.Priority)
	if err != nil {
		s.deliver(prev.RequestID, nil, terrors.Wrap(err, "dispatch chained request"))
		return
	}

	// The post-process hook travels with the chain: a follow-up spec
	// rarely carries its own, and the hook belongs to the original
	// request's eventual Ready value.
	postProcess := next.PostProcess
	if postProcess == nil {
		postProcess = prev.PostProcess
	}

	entry := pending.Entry{
		RequestID:   prev.RequestID,
		Adapter:     next.OnResponse,
		Context:     next.Context,
		PostProcess: postProcess,
	}
	for _, r := range receipts {
		s.pending.Insert(r.Server, r.Seq, entry)
	}
}

// deliver resolves the waiter channel keyed by requestID, if still
// outstanding. A miss happens if the handler's context was already
// cancelled, or on duplicate resolution attempts; both are silent drops.
func (s *Session) deliver(requestID json.RawMessage, value json.RawMessage, err error) {
	var token string
	if jsonErr := json.Unmarshal(requestID, &token); jsonErr != nil {
		return
	}

	s.waitersMu.Lock()
	ch, ok := s.waiters[token]
	if ok {
		delete(s.waiters, token)
	}
	s.waitersMu.Unlock()

	if !ok {
		return
	}
	ch <- waiterResult{value: value, err: err}
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

package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/broker"
	"github.com/chojs23/ts-bridge/internal/terrors"
)

// restartState tracks the in-flight restart progress token, if any.
type restartState struct {
	mu    sync.Mutex
	token string
}

func (r *restartState) begin() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != "" {
		return "", false
	}
	r.token = uuid.NewString()
	return r.token, true
}

func (r *restartState) end() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == "" {
		return "", false
	}
	token := r.token
	r.token = ""
	return token, true
}

// handleRestarting begins the restart choreography: every pending request
// fails with a cancellation error, the hint cache and tsserver preference
// state are invalidated, and a progress token is begun.
func (s *Session) handleRestarting(ev broker.ServerEvent) {
	for _, entry := range s.pending.DrainAll() {
		s.deliver(entry.RequestID, nil, terrors.ErrRestarting)
	}

	s.inlay.clear()
	s.inlay.resetConfigured()

	if token, ok := s.restart.begin(); ok {
		s.beginProgress(token, "Restarting tsserver")
	}
}

// handleRestarted replays updateOpen for every open document from the
// document store's snapshots, re-requests diagnostics for each, and ends
// the restart progress.
func (s *Session) handleRestarted(ev broker.ServerEvent) {
	uris := s.documents.OpenURIs()
	for _, uri := range uris {
		text, ok := s.documents.Text(uri)
		if !ok {
			continue
		}
		language, _ := s.documents.Language(uri)
		spec := adapters.OpenNotification(s.workspaceRoot, uri, text, language)
		if err := s.notification(spec); err != nil {
			s.log.Warnw("re-open document after restart", "uri", uri, "error", err)
		}
	}
	if len(uris) > 0 {
		s.startGeterr(uris)
	}

	if token, ok := s.restart.end(); ok {
		s.endProgress(token, "tsserver restarted")
	}
}

func (s *Session) handleRestartFailed(ev broker.ServerEvent) {
	if token, ok := s.restart.end(); ok {
		s.endProgress(token, "tsserver restart failed")
	}
	s.notifyClient("window/showMessage", map[string]interface{}{
		"type":    1, // Error
		"message": "tsserver restart failed: " + ev.Message,
	})
}

func (s *Session) handleConfigUpdated(ev broker.ServerEvent) {
	s.mu.Lock()
	s.settings = ev.Config
	s.mu.Unlock()
	s.inlay.resetConfigured()
}

// --- work-done progress ---------------------------------------------------

// beginProgress creates a server-initiated work-done progress token and
// opens it, when the client advertised support. Params are plain maps:
// the $/progress value union marshals more simply than the typed structs.
func (s *Session) beginProgress(token, title string) {
	s.mu.Lock()
	workDone := s.workDoneCap
	call := s.call
	s.mu.Unlock()

	if !workDone {
		return
	}
	if call != nil {
		call("window/workDoneProgress/create", map[string]interface{}{"token": token}, nil)
	}
	s.notifyClient("$/progress", map[string]interface{}{
		"token": token,
		"value": map[string]interface{}{"kind": "begin", "title": title},
	})
}

func (s *Session) reportProgress(token string, percentage int, message string) {
	s.mu.Lock()
	workDone := s.workDoneCap
	s.mu.Unlock()
	if !workDone {
		return
	}
	s.notifyClient("$/progress", map[string]interface{}{
		"token": token,
		"value": map[string]interface{}{
			"kind":       "report",
			"percentage": percentage,
			"message":    message,
		},
	})
}

func (s *Session) endProgress(token, message string) {
	s.mu.Lock()
	workDone := s.workDoneCap
	s.mu.Unlock()
	if !workDone {
		return
	}
	s.notifyClient("$/progress", map[string]interface{}{
		"token": token,
		"value": map[string]interface{}{"kind": "end", "message": message},
	})
}

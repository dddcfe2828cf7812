package session

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// publishDiagnostics is the diagnostics.Publisher passed to the
// aggregator: it runs on the pump goroutine and pushes
// textDocument/publishDiagnostics straight to the client.
func (s *Session) publishDiagnostics(uri string, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	s.notifyClient("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
}

// reportDiagnosticsProgress converts the aggregator's (completed,
// expected) counters into a work-done progress percentage, opening the
// token when work appears and closing it once every expected kind has
// arrived.
func (s *Session) reportDiagnosticsProgress() {
	completed, expected := s.diagnostics.Progress()

	if expected == 0 {
		if token, ok := s.diagProgress.end(); ok {
			s.endProgress(token, "diagnostics complete")
		}
		return
	}

	if token, ok := s.diagProgress.begin(); ok {
		s.beginProgress(token, "Collecting diagnostics")
	}

	s.diagProgress.mu.Lock()
	token := s.diagProgress.token
	s.diagProgress.mu.Unlock()
	if token == "" {
		return
	}
	s.reportProgress(token, completed*100/expected, "diagnostics")
}

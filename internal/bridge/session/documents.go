package session

import (
	glsp "github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/adapters"
	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/document"
)

// TextDocumentDidOpen tracks the document, announces it to both tsserver
// children via updateOpen, and kicks off a diagnostics pass.
func (s *Session) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureTransport(ctx)
	if !s.ready() {
		return nil
	}

	uri := string(params.TextDocument.URI)
	s.documents.Open(uri, params.TextDocument.Text, params.TextDocument.Version, params.TextDocument.LanguageID)
	s.inlay.invalidate(uri)

	spec := adapters.OpenNotification(s.workspaceRoot, uri, params.TextDocument.Text, params.TextDocument.LanguageID)
	if err := s.notification(spec); err != nil {
		s.log.Warnw("dispatch updateOpen for didOpen", "uri", uri, "error", err)
		return nil
	}

	s.startGeterr([]string{uri})
	return nil
}

// TextDocumentDidChange applies the edits to the local snapshot, forwards
// them to tsserver in received order, and re-requests diagnostics.
func (s *Session) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureTransport(ctx)
	if !s.ready() {
		return nil
	}

	uri := string(params.TextDocument.URI)

	docChanges := make([]document.Change, 0, len(params.ContentChanges))
	tsChanges := make([]adapters.TextChange, 0, len(params.ContentChanges))
	for _, raw := range params.ContentChanges {
		change, ok := contentChange(raw)
		if !ok {
			s.log.Warnw("unrecognized content change event shape", "uri", uri)
			continue
		}
		docChanges = append(docChanges, change)
		tsChanges = append(tsChanges, tsChangeFrom(change))
	}

	s.documents.ApplyChanges(uri, docChanges, params.TextDocument.Version)
	s.inlay.invalidate(uri)

	if len(tsChanges) > 0 {
		spec := adapters.ChangeNotification(s.workspaceRoot, uri, tsChanges)
		if err := s.notification(spec); err != nil {
			s.log.Warnw("dispatch updateOpen for didChange", "uri", uri, "error", err)
			return nil
		}
	}

	s.startGeterr([]string{uri})
	return nil
}

// TextDocumentDidClose drops the snapshot, clears cached per-file state,
// and tells tsserver the file is closed.
func (s *Session) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.captureTransport(ctx)
	if !s.ready() {
		return nil
	}

	uri := string(params.TextDocument.URI)
	s.documents.Close(uri)
	s.inlay.invalidate(uri)
	s.diagnostics.ClearFile(uri)
	s.publishDiagnostics(uri, nil)

	spec := adapters.CloseNotification(s.workspaceRoot, uri)
	if err := s.notification(spec); err != nil {
		s.log.Warnw("dispatch updateOpen for didClose", "uri", uri, "error", err)
	}
	return nil
}

// ready reports whether Initialize has wired the session up; lifecycle
// notifications arriving before that are dropped rather than crashing on
// nil stores.
func (s *Session) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// contentChange normalizes glsp's ContentChanges union members (ranged
// and whole-document variants, by value or pointer) into the document
// store's Change.
func contentChange(raw interface{}) (document.Change, bool) {
	switch c := raw.(type) {
	case protocol.TextDocumentContentChangeEvent:
		return rangedChange(c.Range, c.Text), true
	case *protocol.TextDocumentContentChangeEvent:
		return rangedChange(c.Range, c.Text), true
	case protocol.TextDocumentContentChangeEventWhole:
		return document.Change{Text: c.Text}, true
	case *protocol.TextDocumentContentChangeEventWhole:
		return document.Change{Text: c.Text}, true
	default:
		return document.Change{}, false
	}
}

func rangedChange(r *protocol.Range, text string) document.Change {
	if r == nil {
		return document.Change{Text: text}
	}
	return document.Change{
		Ranged: true,
		Range: document.Range{
			Start: document.Position{Line: int(r.Start.Line), Character: int(r.Start.Character)},
			End:   document.Position{Line: int(r.End.Line), Character: int(r.End.Character)},
		},
		Text: text,
	}
}

// tsChangeFrom converts a store change into tsserver's 1-based
// line/offset text change; whole-document replacements keep nil
// endpoints.
func tsChangeFrom(c document.Change) adapters.TextChange {
	if !c.Ranged {
		return adapters.TextChange{NewText: c.Text}
	}
	start := coords.ToTSServer(c.Range.Start.Line, c.Range.Start.Character)
	end := coords.ToTSServer(c.Range.End.Line, c.Range.End.Character)
	return adapters.TextChange{Start: &start, End: &end, NewText: c.Text}
}

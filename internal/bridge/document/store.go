// Package document tracks per-session open-document text snapshots and the
// UTF-16 line metrics used to translate LSP ranges into tsserver text
// spans.
package document

import (
	"sync"

	"go.uber.org/zap"
)

// LineMetrics describes one line's position within the document, in both
// byte and UTF-16 coordinate spaces.
type LineMetrics struct {
	StartByte     int
	StartUTF16    int
	ContentBytes  int
	ContentUTF16  int
}

// Position is an LSP 0-based, UTF-16 position.
type Position struct {
	Line      int
	Character int
}

// Range is an LSP 0-based, UTF-16 half-open range.
type Range struct {
	Start Position
	End   Position
}

// Change is one textDocument/didChange content change event. Ranged is
// false for a full-text replacement.
type Change struct {
	Ranged bool
	Range  Range
	Text   string
}

// TextSpan is a UTF-16 (start, length) pair, the sole coordinate tsserver's
// inlay-hint command accepts.
type TextSpan struct {
	Start  int
	Length int
}

// snapshot is one open document's current state.
type snapshot struct {
	text       string
	version    int32
	language   string
	lines      []LineMetrics
	totalUTF16 int
}

// Store maps open document URIs to their current snapshot. A Store is
// session-local: only the owning session's goroutine mutates it.
type Store struct {
	mu   sync.Mutex
	docs map[string]*snapshot
	log  *zap.SugaredLogger
}

// NewStore returns an empty document store.
func NewStore(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{docs: make(map[string]*snapshot), log: log}
}

// Open inserts or replaces a document's snapshot and precomputes its line
// metrics.
func (s *Store) Open(uri, text string, version int32, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = &snapshot{
		text:     text,
		version:  version,
		language: language,
		lines:    computeLineMetrics(text),
	}
	s.docs[uri].totalUTF16 = totalUTF16(s.docs[uri].lines)
}

// Close drops a document's snapshot.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Text returns the current full text of an open document.
func (s *Store) Text(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return doc.text, true
}

// UTF16Length reports the document's total UTF-16 length, used as the end
// coordinate of whole-document tsserver spans (format, inlay-hint
// fallback).
func (s *Store) UTF16Length(uri string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return 0, false
	}
	return doc.totalUTF16, true
}

// Language reports the language identifier the document was opened with.
func (s *Store) Language(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return doc.language, true
}

// IsOpen reports whether uri currently has a tracked snapshot.
func (s *Store) IsOpen(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[uri]
	return ok
}

// OpenURIs returns every currently tracked document URI, for restart replay.
func (s *Store) OpenURIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}

// ApplyChanges applies a sequence of content changes, in order, to an open
// document, recomputing line metrics once at the end. Changes referencing
// an unopened document are warned and dropped. Out-of-range lines and
// characters are clamped to the document; a change whose end precedes its
// start is warned and dropped without affecting the rest of the batch.
func (s *Store) ApplyChanges(uri string, changes []Change, version int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		s.log.Warnw("apply_changes on unopened document", "uri", uri)
		return
	}

	for _, change := range changes {
		if !change.Ranged {
			doc.text = change.Text
			continue
		}

		startByte, ok1 := doc.byteIndex(change.Range.Start)
		endByte, ok2 := doc.byteIndex(change.Range.End)
		if !ok1 || !ok2 || startByte > endByte || endByte > len(doc.text) {
			s.log.Warnw("dropping out-of-bounds change",
				"uri", uri, "start", change.Range.Start, "end", change.Range.End)
			continue
		}

		doc.text = doc.text[:startByte] + change.Text + doc.text[endByte:]
	}

	doc.lines = computeLineMetrics(doc.text)
	doc.totalUTF16 = totalUTF16(doc.lines)
	doc.version = version
}

// SpanForRange converts an LSP range into a tsserver UTF-16 text span,
// clamping out-of-range lines and characters instead of failing. Returns
// false if the document has not been opened.
func (s *Store) SpanForRange(uri string, r Range) (TextSpan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return TextSpan{}, false
	}

	start := doc.utf16Offset(r.Start)
	end := doc.utf16Offset(r.End)

	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	return TextSpan{Start: lo, Length: hi - lo}, true
}

// clampLine returns the metric index for line, clamped to the last
// available line.
func (d *snapshot) clampLine(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(d.lines) {
		return len(d.lines) - 1
	}
	return line
}

// utf16Offset converts a clamped LSP position into an absolute UTF-16
// offset within the document.
func (d *snapshot) utf16Offset(pos Position) int {
	if len(d.lines) == 0 {
		return 0
	}
	idx := d.clampLine(pos.Line)
	m := d.lines[idx]
	char := pos.Character
	if char < 0 {
		char = 0
	}
	if char > m.ContentUTF16 {
		char = m.ContentUTF16
	}
	return m.StartUTF16 + char
}

// byteIndex converts a clamped LSP position into a byte offset within the
// document's text, reporting false if the line index is entirely invalid
// (empty document).
func (d *snapshot) byteIndex(pos Position) (int, bool) {
	if len(d.lines) == 0 {
		return 0, pos.Line == 0 && pos.Character == 0
	}
	idx := d.clampLine(pos.Line)
	m := d.lines[idx]

	char := pos.Character
	if char < 0 {
		char = 0
	}
	if char > m.ContentUTF16 {
		char = m.ContentUTF16
	}

	// Walk the line's runes to translate a UTF-16 character offset into a
	// byte offset, accounting for supplementary-plane runes costing 2
	// UTF-16 units but more than 2 bytes.
	line := d.text[m.StartByte : m.StartByte+m.ContentBytes]
	byteOff := m.StartByte
	utf16Count := 0
	for _, r := range line {
		if utf16Count >= char {
			break
		}
		byteOff += runeByteLen(r)
		utf16Count += utf16RuneLen(r)
	}
	return byteOff, true
}

func totalUTF16(lines []LineMetrics) int {
	if len(lines) == 0 {
		return 0
	}
	last := lines[len(lines)-1]
	return last.StartUTF16 + last.ContentUTF16
}

// computeLineMetrics scans text once, producing one LineMetrics entry per
// line. A line ends at \n, \r, or \r\n; the terminator itself is excluded
// from ContentBytes/ContentUTF16 but its UTF-16 width (1 or 2) advances the
// next line's StartUTF16. If the text ends with a line terminator, an
// empty trailing metric is appended so the final position stays
// addressable.
func computeLineMetrics(text string) []LineMetrics {
	var lines []LineMetrics

	lineStartByte := 0
	lineStartUTF16 := 0
	byteIdx := 0
	utf16Idx := 0

	runes := []rune(text)
	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += runeByteLen(r)
	}
	byteOffsets[len(runes)] = off

	i := 0
	for i < len(runes) {
		r := runes[i]

		if r == '\r' {
			contentBytes := byteOffsets[i] - lineStartByte
			contentUTF16 := utf16Idx - lineStartUTF16
			width := 1
			if i+1 < len(runes) && runes[i+1] == '\n' {
				width = 2
				i++
			}
			lines = append(lines, LineMetrics{
				StartByte:    lineStartByte,
				StartUTF16:   lineStartUTF16,
				ContentBytes: contentBytes,
				ContentUTF16: contentUTF16,
			})
			i++
			byteIdx = byteOffsets[i]
			utf16Idx += utf16RuneLen(r) + width - 1
			lineStartByte = byteIdx
			lineStartUTF16 = utf16Idx
			continue
		}

		if r == '\n' {
			contentBytes := byteOffsets[i] - lineStartByte
			contentUTF16 := utf16Idx - lineStartUTF16
			lines = append(lines, LineMetrics{
				StartByte:    lineStartByte,
				StartUTF16:   lineStartUTF16,
				ContentBytes: contentBytes,
				ContentUTF16: contentUTF16,
			})
			i++
			byteIdx = byteOffsets[i]
			utf16Idx++
			lineStartByte = byteIdx
			lineStartUTF16 = utf16Idx
			continue
		}

		utf16Idx += utf16RuneLen(r)
		i++
	}

	// The tail after the last terminator is always a line, empty when the
	// text ends with a terminator, so the final cursor position stays
	// addressable.
	lines = append(lines, LineMetrics{
		StartByte:    lineStartByte,
		StartUTF16:   lineStartUTF16,
		ContentBytes: len(text) - lineStartByte,
		ContentUTF16: utf16Idx - lineStartUTF16,
	})

	return lines
}

// runeByteLen returns the UTF-8 byte width of r.
func runeByteLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

// utf16RuneLen returns 2 for supplementary-plane runes (surrogate pairs),
// 1 otherwise.
func utf16RuneLen(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

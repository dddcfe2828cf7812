package document

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndSpanForRangeASCII(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "const x = 1;\nconst y = 2;\n", 1, "typescript")

	span, ok := s.SpanForRange("file:///a.ts", Range{
		Start: Position{Line: 1, Character: 0},
		End:   Position{Line: 1, Character: 5},
	})
	require.True(t, ok)
	assert.Equal(t, 5, span.Length)
}

func TestSpanForRangeUnknownDocument(t *testing.T) {
	s := NewStore(nil)
	_, ok := s.SpanForRange("file:///missing.ts", Range{})
	assert.False(t, ok)
}

func TestSpanForRangeClampsOutOfBounds(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "abc", 1, "typescript")

	span, ok := s.SpanForRange("file:///a.ts", Range{
		Start: Position{Line: 50, Character: 0},
		End:   Position{Line: 50, Character: 999},
	})
	require.True(t, ok)
	assert.Equal(t, 3, span.Length)
}

func TestApplyChangesFullReplace(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "old", 1, "typescript")
	s.ApplyChanges("file:///a.ts", []Change{{Ranged: false, Text: "new text"}}, 2)

	text, ok := s.Text("file:///a.ts")
	require.True(t, ok)
	assert.Equal(t, "new text", text)
}

func TestApplyChangesRangedSplice(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "hello world", 1, "typescript")
	// Replace "world" (chars 6..11) with "there".
	s.ApplyChanges("file:///a.ts", []Change{{
		Ranged: true,
		Range:  Range{Start: Position{Line: 0, Character: 6}, End: Position{Line: 0, Character: 11}},
		Text:   "there",
	}}, 2)

	text, _ := s.Text("file:///a.ts")
	assert.Equal(t, "hello there", text)
}

func TestApplyChangesDropsOutOfRangeEdit(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "short", 1, "typescript")
	s.ApplyChanges("file:///a.ts", []Change{{
		Ranged: true,
		Range:  Range{Start: Position{Line: 0, Character: 3}, End: Position{Line: 0, Character: 1}}, // end < start
		Text:   "x",
	}}, 2)

	text, _ := s.Text("file:///a.ts")
	assert.Equal(t, "short", text, "out-of-order edit should be dropped, leaving text unchanged")
}

func TestApplyChangesOnUnopenedDocumentIsNoop(t *testing.T) {
	s := NewStore(nil)
	s.ApplyChanges("file:///missing.ts", []Change{{Text: "x"}}, 1)
	_, ok := s.Text("file:///missing.ts")
	assert.False(t, ok)
}

func TestCloseDropsSnapshot(t *testing.T) {
	s := NewStore(nil)
	s.Open("file:///a.ts", "x", 1, "typescript")
	s.Close("file:///a.ts")
	assert.False(t, s.IsOpen("file:///a.ts"))
}

func TestLineMetricsSupplementaryPlane(t *testing.T) {
	// U+1F600 (grinning face) is a surrogate pair: 2 UTF-16 units, 4 bytes.
	text := "a\U0001F600b\nsecond"
	lines := computeLineMetrics(text)
	require.Len(t, lines, 2)

	// Reference UTF-16 length of the first line's content ("a<emoji>b").
	want := utf16.Encode([]rune("a\U0001F600b"))
	assert.Equal(t, len(want), lines[0].ContentUTF16)
}

func TestLineMetricsCRLF(t *testing.T) {
	lines := computeLineMetrics("a\r\nb")
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].ContentUTF16)
	assert.Equal(t, 3, lines[1].StartUTF16) // "a" (1) + CRLF (2)
}

func TestLineMetricsTrailingNewlineAddsEmptyLine(t *testing.T) {
	lines := computeLineMetrics("one\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 0, lines[1].ContentUTF16)
}

func TestUTF16LengthMatchesReferenceEncoding(t *testing.T) {
	cases := []string{
		"",
		"plain ascii",
		"one\n",
		"a\r\nb\rc\nd",
		"a\U0001F600b\nsecond\n",
	}
	s := NewStore(nil)
	for _, text := range cases {
		s.Open("file:///a.ts", text, 1, "typescript")
		got, ok := s.UTF16Length("file:///a.ts")
		require.True(t, ok)
		assert.Equal(t, len(utf16.Encode([]rune(text))), got, "text %q", text)
	}
}

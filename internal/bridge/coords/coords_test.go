package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTSServer(t *testing.T) {
	pos := ToTSServer(4, 2)
	assert.Equal(t, 5, pos.Line)
	assert.Equal(t, 3, pos.Offset)
}

func TestCoordinateRoundTrip(t *testing.T) {
	for line := 0; line < 5; line++ {
		for character := 0; character < 5; character++ {
			ts := ToTSServer(line, character)
			gotLine, gotChar := FromTSServer(ts)
			assert.Equal(t, line, gotLine)
			assert.Equal(t, character, gotChar)
		}
	}
}

func TestFromTSServerSaturatesAtZero(t *testing.T) {
	line, char := FromTSServer(TSPosition{Line: 0, Offset: 0})
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, char)
}

func TestURIToFilePathTableDriven(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		want string
		ok   bool
	}{
		{"simple", "file:///workspace/foo.ts", "/workspace/foo.ts", true},
		{"spaces encoded", "file:///workspace/my%20file.ts", "/workspace/my file.ts", true},
		{"zipfile passthrough", "zipfile:///workspace/lib.zip/a.ts", "zipfile:///workspace/lib.zip/a.ts", true},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := URIToFilePath(tc.uri)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestFilePathToURIRoundTrip(t *testing.T) {
	path := "/workspace/foo.ts"
	uri := FilePathToURI(path)
	assert.Equal(t, "file:///workspace/foo.ts", uri)

	back, ok := URIToFilePath(uri)
	assert.True(t, ok)
	assert.Equal(t, path, back)
}

func TestScriptKindFromLanguage(t *testing.T) {
	assert.Equal(t, "JSX", ScriptKindFromLanguage("javascriptreact"))
	assert.Equal(t, "TSX", ScriptKindFromLanguage("typescriptreact"))
	assert.Equal(t, "JS", ScriptKindFromLanguage("javascript"))
	assert.Equal(t, "TS", ScriptKindFromLanguage("typescript"))
	assert.Equal(t, "JSON", ScriptKindFromLanguage("json"))
	assert.Equal(t, "TS", ScriptKindFromLanguage("unknown"))
}

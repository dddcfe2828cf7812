package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/broker"
)

func TestArgURIShapes(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{
			name: "text document position params",
			args: []any{map[string]interface{}{
				"textDocument": map[string]interface{}{"uri": "file:///w/a.ts"},
				"position":     map[string]interface{}{"line": float64(1), "character": float64(2)},
			}},
			want: "file:///w/a.ts",
		},
		{
			name: "bare identifier",
			args: []any{map[string]interface{}{"uri": "file:///w/b.ts"}},
			want: "file:///w/b.ts",
		},
		{
			name: "string argument",
			args: []any{"file:///w/c.ts"},
			want: "file:///w/c.ts",
		},
		{
			name: "no arguments",
			args: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, argURI(tt.args))
		})
	}
}

func TestArgPosition(t *testing.T) {
	uri, line, character, ok := argPosition([]any{map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": "file:///w/a.ts"},
		"position":     map[string]interface{}{"line": float64(4), "character": float64(2)},
	}})
	require.True(t, ok)
	assert.Equal(t, "file:///w/a.ts", uri)
	assert.Equal(t, 4, line)
	assert.Equal(t, 2, character)

	_, _, _, ok = argPosition([]any{map[string]interface{}{"uri": "file:///w/a.ts"}})
	assert.False(t, ok)
}

func TestArgRenamePaths(t *testing.T) {
	oldURI, newURI, ok := argRenamePaths([]any{map[string]interface{}{
		"oldUri": "file:///w/a.ts",
		"newUri": "file:///w/b.ts",
	}})
	require.True(t, ok)
	assert.Equal(t, "file:///w/a.ts", oldURI)
	assert.Equal(t, "file:///w/b.ts", newURI)

	oldURI, newURI, ok = argRenamePaths([]any{map[string]interface{}{
		"files": []interface{}{map[string]interface{}{
			"oldUri": "file:///w/c.ts",
			"newUri": "file:///w/d.ts",
		}},
	}})
	require.True(t, ok)
	assert.Equal(t, "file:///w/c.ts", oldURI)
	assert.Equal(t, "file:///w/d.ts", newURI)

	oldURI, newURI, ok = argRenamePaths([]any{"file:///w/e.ts", "file:///w/f.ts"})
	require.True(t, ok)
	assert.Equal(t, "file:///w/e.ts", oldURI)
	assert.Equal(t, "file:///w/f.ts", newURI)

	_, _, ok = argRenamePaths(nil)
	assert.False(t, ok)
}

func TestRestartKindOf(t *testing.T) {
	kind, ok := restartKindOf("syntax")
	require.True(t, ok)
	assert.Equal(t, broker.RestartSyntax, kind)

	kind, ok = restartKindOf("both")
	require.True(t, ok)
	assert.Equal(t, broker.RestartBoth, kind)

	_, ok = restartKindOf("everything")
	assert.False(t, ok)
}

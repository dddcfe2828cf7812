package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

func argumentsOf(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	args, ok := payload["arguments"].(map[string]interface{})
	require.True(t, ok)
	return args
}

func TestOpenNotificationShape(t *testing.T) {
	spec := OpenNotification("/w", "file:///w/a.tsx", "const x = 1", "typescriptreact")

	assert.Equal(t, rpc.RouteBoth, spec.Route)
	assert.Equal(t, rpc.PriorityConst, spec.Priority)
	assert.Equal(t, "updateOpen", spec.Payload["command"])

	args := argumentsOf(t, spec.Payload)
	assert.Equal(t, "/w", args["projectRootPath"])
	assert.Empty(t, args["changedFiles"])
	assert.Empty(t, args["closedFiles"])

	open, ok := args["openFiles"].([]interface{})
	require.True(t, ok)
	require.Len(t, open, 1)
	entry := open[0].(map[string]interface{})
	assert.Equal(t, "/w/a.tsx", entry["file"])
	assert.Equal(t, "const x = 1", entry["fileContent"])
	assert.Equal(t, "TSX", entry["scriptKindName"])
}

func TestChangeNotificationRangedAndWhole(t *testing.T) {
	start := coords.TSPosition{Line: 2, Offset: 1}
	end := coords.TSPosition{Line: 2, Offset: 6}
	spec := ChangeNotification("/w", "file:///w/a.ts", []TextChange{
		{Start: &start, End: &end, NewText: "hello"},
		{NewText: "full replacement"},
	})

	args := argumentsOf(t, spec.Payload)
	changed, ok := args["changedFiles"].([]interface{})
	require.True(t, ok)
	require.Len(t, changed, 1)

	file := changed[0].(map[string]interface{})
	assert.Equal(t, "/w/a.ts", file["fileName"])

	textChanges := file["textChanges"].([]interface{})
	require.Len(t, textChanges, 2)

	ranged := textChanges[0].(map[string]interface{})
	assert.Equal(t, "hello", ranged["newText"])
	assert.Equal(t, map[string]interface{}{"line": 2, "offset": 1}, ranged["start"])
	assert.Equal(t, map[string]interface{}{"line": 2, "offset": 6}, ranged["end"])

	whole := textChanges[1].(map[string]interface{})
	assert.Equal(t, "full replacement", whole["newText"])
	assert.NotContains(t, whole, "start")
}

func TestCloseNotificationShape(t *testing.T) {
	spec := CloseNotification("/w", "file:///w/a.ts")
	args := argumentsOf(t, spec.Payload)
	assert.Equal(t, []interface{}{"/w/a.ts"}, args["closedFiles"])
}

func TestGeterrNotificationShape(t *testing.T) {
	spec := GeterrNotification([]string{"file:///w/a.ts"})

	assert.Equal(t, rpc.RouteBoth, spec.Route)
	assert.Equal(t, rpc.PriorityLow, spec.Priority)
	assert.Equal(t, "geterr", spec.Payload["command"])

	args := argumentsOf(t, spec.Payload)
	assert.Equal(t, []string{"/w/a.ts"}, args["files"])
	assert.Equal(t, 0, args["delay"])
}

func TestConfigureRequestPreferences(t *testing.T) {
	enabled := ConfigureRequest(true)
	prefs := argumentsOf(t, enabled)["preferences"].(map[string]interface{})
	assert.Equal(t, "all", prefs["includeInlayParameterNameHints"])
	assert.Equal(t, true, prefs["includeInlayVariableTypeHints"])

	disabled := ConfigureRequest(false)
	prefs = argumentsOf(t, disabled)["preferences"].(map[string]interface{})
	assert.Equal(t, "none", prefs["includeInlayParameterNameHints"])
	assert.Equal(t, false, prefs["includeInlayFunctionLikeReturnTypeHints"])
}

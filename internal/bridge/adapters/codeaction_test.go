package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol3 "github.com/tliron/glsp/protocol_3_16"
)

func combinedFixResponse(file, newText string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "response",
		"success": true,
		"body": map[string]interface{}{
			"changes": []interface{}{
				map[string]interface{}{
					"fileName": file,
					"textChanges": []interface{}{
						map[string]interface{}{
							"start":   map[string]interface{}{"line": float64(1), "offset": float64(1)},
							"end":     map[string]interface{}{"line": float64(1), "offset": float64(1)},
							"newText": newText,
						},
					},
				},
			},
		},
	}
}

// TestFixAllChain walks the whole TSBFixAll chain: each step must Continue
// with the next fix id, and only the final step replies, with the edits of
// every round merged by URI.
func TestFixAllChain(t *testing.T) {
	spec := FixAll("/w/a.ts")
	assert.Equal(t, "getCombinedCodeFix", spec.Payload["command"])

	var rounds int
	for {
		rounds++
		result, err := spec.OnResponse(combinedFixResponse("/w/a.ts", "edit"), spec.Context)
		require.NoError(t, err)
		if result.Ready {
			edit := decodeReady[protocol3.WorkspaceEdit](t, result.Value)
			uri := protocol3.DocumentUri("file:///w/a.ts")
			require.Contains(t, edit.Changes, uri)
			assert.Len(t, edit.Changes[uri], len(fixAllIDs))
			break
		}
		require.NotNil(t, result.Next)
		spec = *result.Next
	}
	assert.Equal(t, len(fixAllIDs), rounds)
}

func TestFixAllChainToleratesEmptyRounds(t *testing.T) {
	spec := FixAll("/w/a.ts")
	var final protocol3.WorkspaceEdit
	for {
		result, err := spec.OnResponse(map[string]interface{}{"success": true}, spec.Context)
		require.NoError(t, err)
		if result.Ready {
			final = decodeReady[protocol3.WorkspaceEdit](t, result.Value)
			break
		}
		spec = *result.Next
	}
	assert.Empty(t, final.Changes)
}

func TestCodeActionAdapterBuildsQuickfixes(t *testing.T) {
	payload := map[string]interface{}{
		"body": []interface{}{
			map[string]interface{}{
				"description": "Remove unused declaration",
				"changes": []interface{}{
					map[string]interface{}{
						"fileName": "/w/a.ts",
						"textChanges": []interface{}{
							map[string]interface{}{
								"start":   map[string]interface{}{"line": float64(3), "offset": float64(1)},
								"end":     map[string]interface{}{"line": float64(4), "offset": float64(1)},
								"newText": "",
							},
						},
					},
				},
			},
		},
	}

	result, err := codeActionAdapter(payload, "/w/a.ts")
	require.NoError(t, err)

	actions := decodeReady[[]protocol3.CodeAction](t, result.Value)
	require.Len(t, actions, 1)
	assert.Equal(t, "Remove unused declaration", actions[0].Title)
	require.NotNil(t, actions[0].Kind)
	assert.Equal(t, protocol3.CodeActionKindQuickFix, *actions[0].Kind)
	require.NotNil(t, actions[0].Edit)
	assert.Contains(t, actions[0].Edit.Changes, protocol3.DocumentUri("file:///w/a.ts"))
}

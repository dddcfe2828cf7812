package adapters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol3 "github.com/tliron/glsp/protocol_3_16"
)

func decodeReady[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHoverAdapterRendersMarkdown(t *testing.T) {
	payload := map[string]interface{}{
		"type":        "response",
		"request_seq": float64(7),
		"success":     true,
		"body": map[string]interface{}{
			"displayString": "const greet: () => void",
			"documentation": []interface{}{
				map[string]interface{}{"text": "Greets the user."},
			},
			"tags": []interface{}{
				map[string]interface{}{
					"name": "deprecated",
					"text": []interface{}{map[string]interface{}{"text": "Use greetAsync."}},
				},
			},
			"start": map[string]interface{}{"line": float64(1), "offset": float64(1)},
			"end":   map[string]interface{}{"line": float64(1), "offset": float64(6)},
		},
	}

	result, err := hoverAdapter(payload, nil)
	require.NoError(t, err)
	require.True(t, result.Ready)

	hover := decodeReady[struct {
		Contents protocol3.MarkupContent `json:"contents"`
		Range    *protocol3.Range        `json:"range"`
	}](t, result.Value)

	assert.Equal(t, "```typescript\nconst greet: () => void\n```\n\nGreets the user.\n\n_@deprecated_ — Use greetAsync.", hover.Contents.Value)
	require.NotNil(t, hover.Range)
	assert.Equal(t, protocol3.UInteger(0), hover.Range.Start.Line)
	assert.Equal(t, protocol3.UInteger(0), hover.Range.Start.Character)
	assert.Equal(t, protocol3.UInteger(0), hover.Range.End.Line)
	assert.Equal(t, protocol3.UInteger(5), hover.Range.End.Character)
}

func TestHoverAdapterEmptyBody(t *testing.T) {
	result, err := hoverAdapter(map[string]interface{}{"success": true}, nil)
	require.NoError(t, err)
	require.True(t, result.Ready)
	assert.Equal(t, "null", string(result.Value))
}

func TestHoverAdapterNoDocumentation(t *testing.T) {
	payload := map[string]interface{}{
		"body": map[string]interface{}{
			"displayString": "let n: number",
		},
	}

	result, err := hoverAdapter(payload, nil)
	require.NoError(t, err)

	hover := decodeReady[struct {
		Contents protocol3.MarkupContent `json:"contents"`
	}](t, result.Value)
	assert.Equal(t, "```typescript\nlet n: number\n```", hover.Contents.Value)
}

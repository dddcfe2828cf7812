package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol3 "github.com/tliron/glsp/protocol_3_16"
)

func classifiedSpan(classification string, line, startOffset, endOffset float64) map[string]interface{} {
	return map[string]interface{}{
		"classificationType": classification,
		"textSpan": map[string]interface{}{
			"start": map[string]interface{}{"line": line, "offset": startOffset},
			"end":   map[string]interface{}{"line": line, "offset": endOffset},
		},
	}
}

func TestSemanticTokensAdapterRelativeEncoding(t *testing.T) {
	payload := map[string]interface{}{
		"body": map[string]interface{}{
			"spans": []interface{}{
				classifiedSpan("class name", 1, 7, 12),
				classifiedSpan("member function name", 3, 3, 8),
			},
		},
	}

	result, err := semanticTokensAdapter(payload, nil)
	require.NoError(t, err)

	tokens := decodeReady[protocol3.SemanticTokens](t, result.Value)
	require.Len(t, tokens.Data, 10)

	// First token: absolute (line 0, char 6), class = index 2.
	assert.Equal(t, []protocol3.UInteger{0, 6, 5, 2, 0}, tokens.Data[:5])
	// Second token: two lines down, method = index 8.
	assert.Equal(t, []protocol3.UInteger{2, 2, 5, 8, 0}, tokens.Data[5:])
}

func TestSemanticTokensAdapterDropsUnknownClassifications(t *testing.T) {
	payload := map[string]interface{}{
		"body": map[string]interface{}{
			"spans": []interface{}{
				classifiedSpan("whitespace", 1, 1, 4),
				classifiedSpan("keyword", 1, 1, 4),
			},
		},
	}

	result, err := semanticTokensAdapter(payload, nil)
	require.NoError(t, err)

	tokens := decodeReady[protocol3.SemanticTokens](t, result.Value)
	require.Len(t, tokens.Data, 5)
	assert.Equal(t, protocol3.UInteger(12), tokens.Data[3])
}

func TestTokenModifierMask(t *testing.T) {
	assert.Equal(t, 0, modifierMask(nil))
	assert.Equal(t, 1, modifierMask("declaration"))
	// static (bit 3) + async (bit 4).
	assert.Equal(t, 8+16, modifierMask("static,async"))
	assert.Equal(t, 0, modifierMask("somethingElse"))
}

func TestLegendOrderMatchesAdvertisedCapabilities(t *testing.T) {
	caps := ServerCapabilities(false)
	provider, ok := caps["semanticTokensProvider"].(map[string]interface{})
	require.True(t, ok)
	legend := provider["legend"].(map[string]interface{})

	types := legend["tokenTypes"].([]interface{})
	require.Len(t, types, len(SemanticTokenTypes))
	assert.Equal(t, "namespace", types[0])
	assert.Equal(t, "number", types[len(types)-1])

	assert.NotContains(t, caps, "inlayHintProvider")
	assert.Equal(t, "utf-16", caps["positionEncoding"])

	withHints := ServerCapabilities(true)
	assert.Equal(t, true, withHints["inlayHintProvider"])
}

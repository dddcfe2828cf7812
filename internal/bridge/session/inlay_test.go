package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestInlayCachePerURIInvalidation(t *testing.T) {
	st := newInlayState()

	keyA := inlayCacheKey{uri: "file:///w/a.ts", rangeKey: "0:0-5:0"}
	keyA2 := inlayCacheKey{uri: "file:///w/a.ts", rangeKey: "5:0-9:0"}
	keyB := inlayCacheKey{uri: "file:///w/b.ts", rangeKey: "0:0-5:0"}

	st.put(keyA, json.RawMessage(`[1]`))
	st.put(keyA2, json.RawMessage(`[2]`))
	st.put(keyB, json.RawMessage(`[3]`))

	st.invalidate("file:///w/a.ts")

	_, ok := st.get(keyA)
	assert.False(t, ok)
	_, ok = st.get(keyA2)
	assert.False(t, ok)

	cached, ok := st.get(keyB)
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`[3]`), cached)
}

func TestInlayNeedsConfigureTransitions(t *testing.T) {
	st := newInlayState()

	// First request in either mode must configure.
	assert.True(t, st.needsConfigure(true))
	// Same mode again: already synced.
	assert.False(t, st.needsConfigure(true))
	// Mode flip resynchronizes.
	assert.True(t, st.needsConfigure(false))
	assert.False(t, st.needsConfigure(false))

	// A restart wipes tsserver's preference state.
	st.resetConfigured()
	assert.True(t, st.needsConfigure(false))
}

func TestRangeKeyStability(t *testing.T) {
	r := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 2},
		End:   protocol.Position{Line: 3, Character: 4},
	}
	assert.Equal(t, "1:2-3:4", rangeKeyOf(r))
	assert.Equal(t, rangeKeyOf(r), rangeKeyOf(r))
}

func TestRestartStateTokenLifecycle(t *testing.T) {
	rs := &restartState{}

	token, ok := rs.begin()
	require.True(t, ok)
	assert.NotEmpty(t, token)

	// A second begin while in flight is refused.
	_, ok = rs.begin()
	assert.False(t, ok)

	ended, ok := rs.end()
	require.True(t, ok)
	assert.Equal(t, token, ended)

	_, ok = rs.end()
	assert.False(t, ok)
}

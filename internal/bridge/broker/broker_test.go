package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/provider"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// brokenProvider never resolves a tsserver script, so Dispatch/Restart
// fail deterministically without needing node or typescript installed.
func brokenProvider() provider.Provider {
	return provider.Provider{NodePathOverride: "/usr/bin/true"}
}

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	b := New(t.TempDir(), config.Default(), brokenProvider(), nil)
	t.Cleanup(b.Shutdown)
	return b
}

func TestRegisterSessionReturnsBrokerSettings(t *testing.T) {
	b := newTestBroker(t)
	events := make(chan ServerEvent, 4)

	settings, err := b.RegisterSession("session-1", events, config.Default())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), settings)
}

func TestUnregisterSessionStopsDelivery(t *testing.T) {
	b := newTestBroker(t)
	events := make(chan ServerEvent, 4)

	_, err := b.RegisterSession("session-1", events, config.Default())
	require.NoError(t, err)
	b.UnregisterSession("session-1")

	changed, _, err := b.UpdateConfig(config.PluginSettings{EnableInlayHints: true})
	require.NoError(t, err)
	assert.True(t, changed)

	// Unregistering closes the session's event stream; no broadcast made
	// after that may be delivered on it.
	select {
	case ev, ok := <-events:
		if ok {
			t.Fatalf("unregistered session should not receive events, got %+v", ev)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateConfigBroadcastsOnChange(t *testing.T) {
	b := newTestBroker(t)
	events := make(chan ServerEvent, 4)
	_, err := b.RegisterSession("session-1", events, config.Default())
	require.NoError(t, err)

	changed, settings, err := b.UpdateConfig(config.PluginSettings{EnableInlayHints: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, settings.EnableInlayHints)

	select {
	case ev := <-events:
		assert.Equal(t, EventConfigUpdated, ev.Kind)
		assert.True(t, ev.Config.EnableInlayHints)
	case <-time.After(time.Second):
		t.Fatal("expected a ConfigUpdated event")
	}
}

func TestUpdateConfigNoopWhenUnchanged(t *testing.T) {
	b := newTestBroker(t)
	changed, _, err := b.UpdateConfig(config.Default())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDispatchFailsWhenTsserverScriptMissing(t *testing.T) {
	b := newTestBroker(t)
	_, err := b.Dispatch(rpc.RouteSyntax, map[string]interface{}{"command": "open"}, rpc.PriorityNormal)
	assert.Error(t, err)
}

func TestDispatchSemanticNoopWhenSeparateServerDisabled(t *testing.T) {
	settings := config.Default()
	settings.SeparateDiagnosticServer = false
	b := New(t.TempDir(), settings, brokenProvider(), nil)
	defer b.Shutdown()

	_, err := b.Dispatch(rpc.RouteSemantic, map[string]interface{}{"command": "geterr"}, rpc.PriorityNormal)
	assert.Error(t, err, "no receipts should be produced when the semantic child is disabled")
}

func TestRestartBroadcastsRestartingThenFailed(t *testing.T) {
	b := newTestBroker(t)
	events := make(chan ServerEvent, 8)
	_, err := b.RegisterSession("session-1", events, config.Default())
	require.NoError(t, err)

	err = b.Restart(RestartSyntax)
	require.NoError(t, err, "Restart itself only reports a broker-communication failure")

	first := requireEvent(t, events)
	assert.Equal(t, EventRestarting, first.Kind)

	second := requireEvent(t, events)
	assert.Equal(t, EventRestartFailed, second.Kind)
	assert.NotEmpty(t, second.Message)
}

func TestShutdownRejectsFurtherCommands(t *testing.T) {
	b := New(t.TempDir(), config.Default(), brokenProvider(), nil)
	b.Shutdown()

	_, err := b.RegisterSession("late", make(chan ServerEvent, 1), config.Default())
	assert.Error(t, err)
}

func requireEvent(t *testing.T, events chan ServerEvent) ServerEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broker event")
		return ServerEvent{}
	}
}

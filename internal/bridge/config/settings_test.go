package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	d := Default()
	assert.True(t, d.SeparateDiagnosticServer)
	assert.Equal(t, DiagnosticPublishOnInsertLeave, d.PublishDiagnosticOn)
	assert.False(t, d.EnableInlayHints)
}

func TestApplyWorkspaceSettingsTopLevelRoot(t *testing.T) {
	p := Default()
	changed := p.ApplyWorkspaceSettings(map[string]interface{}{
		"tsBridge": map[string]interface{}{
			"enable_inlay_hints": true,
		},
	})
	assert.True(t, changed)
	assert.True(t, p.EnableInlayHints)
}

func TestApplyWorkspaceSettingsNestedPluginKey(t *testing.T) {
	p := Default()
	changed := p.ApplyWorkspaceSettings(map[string]interface{}{
		"ts-bridge": map[string]interface{}{
			"plugin": map[string]interface{}{
				"separate_diagnostic_server": false,
			},
		},
	})
	assert.True(t, changed)
	assert.False(t, p.SeparateDiagnosticServer)
}

func TestApplyWorkspaceSettingsNoChangeReportsFalse(t *testing.T) {
	p := Default()
	changed := p.ApplyWorkspaceSettings(map[string]interface{}{
		"tsbridge": map[string]interface{}{
			"separate_diagnostic_server": p.SeparateDiagnosticServer,
		},
	})
	assert.False(t, changed)
}

func TestApplyWorkspaceSettingsUnknownRootIgnored(t *testing.T) {
	p := Default()
	changed := p.ApplyWorkspaceSettings(map[string]interface{}{
		"unrelated": map[string]interface{}{"enable_inlay_hints": true},
	})
	assert.False(t, changed)
	assert.False(t, p.EnableInlayHints)
}

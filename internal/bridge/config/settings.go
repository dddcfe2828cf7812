// Package config resolves per-workspace plugin settings: tsserver launch
// options, the diagnostics-publish trigger, and whether inlay hints are
// enabled.
package config

import "github.com/chojs23/ts-bridge/internal/bridge/tsserver"

// DiagnosticPublishMode controls when the session re-requests diagnostics.
type DiagnosticPublishMode string

const (
	DiagnosticPublishOnInsertLeave DiagnosticPublishMode = "insertLeave"
	DiagnosticPublishOnChange      DiagnosticPublishMode = "change"
)

// PossibleSettingRoots are the keys `didChangeConfiguration`/
// `initializationOptions` are searched under, in order, both as a
// top-level key and nested under "plugin".
var PossibleSettingRoots = []string{"ts-bridge", "tsBridge", "tsbridge", "ts_bridge"}

// PluginSettings is the full set of user-configurable bridge behavior.
type PluginSettings struct {
	SeparateDiagnosticServer bool                  `mapstructure:"separate_diagnostic_server" toml:"separate_diagnostic_server"`
	PublishDiagnosticOn      DiagnosticPublishMode  `mapstructure:"publish_diagnostic_on" toml:"publish_diagnostic_on"`
	Tsserver                 TsserverLaunchSettings `mapstructure:"tsserver" toml:"tsserver"`
	EnableInlayHints         bool                   `mapstructure:"enable_inlay_hints" toml:"enable_inlay_hints"`
}

// TsserverLaunchSettings mirrors tsserver.LaunchOptions in a
// config-file/mapstructure-friendly shape (string verbosity instead of the
// typed enum).
type TsserverLaunchSettings struct {
	Locale          string   `mapstructure:"locale" toml:"locale"`
	LogDirectory    string   `mapstructure:"log_directory" toml:"log_directory"`
	LogVerbosity    string   `mapstructure:"log_verbosity" toml:"log_verbosity"`
	MaxOldSpaceSize int      `mapstructure:"max_old_space_size" toml:"max_old_space_size"`
	GlobalPlugins   []string `mapstructure:"global_plugins" toml:"global_plugins"`
	PluginProbeDirs []string `mapstructure:"plugin_probe_dirs" toml:"plugin_probe_dirs"`
	ExtraArgs       []string `mapstructure:"extra_args" toml:"extra_args"`
}

// Default returns the built-in defaults, matching the original's
// Default impl: a separate semantic server, diagnostics republished on
// insert-leave, normal verbosity, inlay hints off until a client enables
// them.
func Default() PluginSettings {
	return PluginSettings{
		SeparateDiagnosticServer: true,
		PublishDiagnosticOn:      DiagnosticPublishOnInsertLeave,
		Tsserver: TsserverLaunchSettings{
			LogVerbosity: string(tsserver.LogVerbosityNormal),
		},
		EnableInlayHints: false,
	}
}

// ToLaunchOptions converts the settings' tsserver section into the
// process package's LaunchOptions, leaving NodePath/ScriptPath to be
// filled in by the provider.
func (p PluginSettings) ToLaunchOptions() tsserver.LaunchOptions {
	return tsserver.LaunchOptions{
		Locale:          p.Tsserver.Locale,
		LogDirectory:    p.Tsserver.LogDirectory,
		LogVerbosity:    tsserver.LogVerbosity(p.Tsserver.LogVerbosity),
		MaxOldSpaceSize: p.Tsserver.MaxOldSpaceSize,
		GlobalPlugins:   p.Tsserver.GlobalPlugins,
		PluginProbeDirs: p.Tsserver.PluginProbeDirs,
		ExtraArgs:       p.Tsserver.ExtraArgs,
	}
}

// ApplyWorkspaceSettings merges a raw initializationOptions /
// didChangeConfiguration payload into p, walking PossibleSettingRoots both
// top-level and nested under "plugin". Returns whether anything changed.
func (p *PluginSettings) ApplyWorkspaceSettings(raw map[string]interface{}) bool {
	changed := false
	for _, root := range PossibleSettingRoots {
		section, ok := raw[root].(map[string]interface{})
		if !ok {
			continue
		}
		if nested, ok := section["plugin"].(map[string]interface{}); ok {
			section = nested
		}
		if p.mergeSection(section) {
			changed = true
		}
	}
	return changed
}

func (p *PluginSettings) mergeSection(section map[string]interface{}) bool {
	changed := false
	if v, ok := section["separate_diagnostic_server"].(bool); ok && v != p.SeparateDiagnosticServer {
		p.SeparateDiagnosticServer = v
		changed = true
	}
	if v, ok := section["publish_diagnostic_on"].(string); ok && DiagnosticPublishMode(v) != p.PublishDiagnosticOn {
		p.PublishDiagnosticOn = DiagnosticPublishMode(v)
		changed = true
	}
	if v, ok := section["enable_inlay_hints"].(bool); ok && v != p.EnableInlayHints {
		p.EnableInlayHints = v
		changed = true
	}
	return changed
}

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/chojs23/ts-bridge/internal/terrors"
)

// Load resolves a workspace's PluginSettings by layering, in precedence
// order: built-in defaults, a discovered .ts-bridge.toml/ts-bridge.toml
// (searched by walking up from workspaceRoot), and TS_BRIDGE_* environment
// variables.
func Load(workspaceRoot string) (PluginSettings, error) {
	settings := Default()

	if path := findProjectConfig(workspaceRoot); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return PluginSettings{}, terrors.Wrapf(err, "read config file %s", path)
		}
		if err := toml.Unmarshal(data, &settings); err != nil {
			return PluginSettings{}, terrors.Wrapf(err, "parse config file %s", path)
		}
	}

	applyEnv(&settings)
	return settings, nil
}

// applyEnv overlays TS_BRIDGE_* variables onto settings. Only scalar
// settings have environment analogues; list-valued tsserver launch
// options come from the config file or initializationOptions.
func applyEnv(settings *PluginSettings) {
	v := viper.New()
	v.SetEnvPrefix("TS_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.IsSet("separate_diagnostic_server") {
		settings.SeparateDiagnosticServer = v.GetBool("separate_diagnostic_server")
	}
	if v.IsSet("publish_diagnostic_on") {
		settings.PublishDiagnosticOn = DiagnosticPublishMode(v.GetString("publish_diagnostic_on"))
	}
	if v.IsSet("enable_inlay_hints") {
		settings.EnableInlayHints = v.GetBool("enable_inlay_hints")
	}
	if v.IsSet("tsserver.locale") {
		settings.Tsserver.Locale = v.GetString("tsserver.locale")
	}
	if v.IsSet("tsserver.log_directory") {
		settings.Tsserver.LogDirectory = v.GetString("tsserver.log_directory")
	}
	if v.IsSet("tsserver.log_verbosity") {
		settings.Tsserver.LogVerbosity = v.GetString("tsserver.log_verbosity")
	}
	if v.IsSet("tsserver.max_old_space_size") {
		settings.Tsserver.MaxOldSpaceSize = v.GetInt("tsserver.max_old_space_size")
	}
}

// findProjectConfig walks up from root looking for .ts-bridge.toml, then
// ts-bridge.toml, stopping at the filesystem root.
func findProjectConfig(root string) string {
	dir := root
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return ""
		}
	}

	for {
		for _, name := range []string{".ts-bridge.toml", "ts-bridge.toml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

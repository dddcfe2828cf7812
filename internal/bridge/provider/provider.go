// Package provider resolves the Node executable and tsserver.js script
// path used to spawn tsserver children.
package provider

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chojs23/ts-bridge/internal/terrors"
)

// Provider resolves NodePath/ScriptPath each time a broker spawns a
// tsserver child, honoring an explicit override before falling back to
// workspace-local `typescript` package locations. A globally installed
// `typescript` package is not searched.
type Provider struct {
	NodePathOverride   string
	ScriptPathOverride string
}

// Resolved names the concrete binaries a tsserver.LaunchOptions needs.
type Resolved struct {
	NodePath   string
	ScriptPath string
}

// candidateScriptPaths are searched relative to workspaceRoot, in order,
// so the workspace's own pinned compiler is used; there is no fallback
// beyond these two paths.
var candidateScriptPaths = []string{
	filepath.Join("node_modules", "typescript", "lib", "tsserver.js"),
	filepath.Join("node_modules", ".bin", "tsserver.js"),
}

// Resolve finds the Node executable and tsserver.js script for workspaceRoot.
func (p Provider) Resolve(workspaceRoot string) (Resolved, error) {
	node := p.NodePathOverride
	if node == "" {
		path, err := exec.LookPath("node")
		if err != nil {
			return Resolved{}, terrors.Wrap(err, "locate node executable on PATH")
		}
		node = path
	}

	if p.ScriptPathOverride != "" {
		return Resolved{NodePath: node, ScriptPath: p.ScriptPathOverride}, nil
	}

	for _, candidate := range candidateScriptPaths {
		full := filepath.Join(workspaceRoot, candidate)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return Resolved{NodePath: node, ScriptPath: full}, nil
		}
	}

	return Resolved{}, terrors.Newf(
		"no tsserver.js found under %s; install the typescript package or set an explicit script path", workspaceRoot)
}

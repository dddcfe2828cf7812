package tsserver

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

func TestReadContentLengthHeaderParsesCaseInsensitively(t *testing.T) {
	raw := "CONTENT-LENGTH: 13\r\n\r\n{\"a\":1}extra12"
	reader := bufio.NewReader(strings.NewReader(raw))
	n, err := readContentLengthHeader(reader)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	body := make([]byte, n)
	_, err = reader.Read(body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}extra1`, string(body))
}

func TestReadContentLengthHeaderSkipsBlankLines(t *testing.T) {
	raw := "\r\nContent-Length: 2\r\n\r\n{}"
	reader := bufio.NewReader(strings.NewReader(raw))
	n, err := readContentLengthHeader(reader)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadContentLengthHeaderEOF(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(""))
	_, err := readContentLengthHeader(reader)
	assert.Error(t, err)
}

func TestNodeArgvMaxOldSpacePrecedesScript(t *testing.T) {
	dir := t.TempDir()
	opts := LaunchOptions{MaxOldSpaceSize: 4096, ScriptPath: "/lib/tsserver.js"}
	argv := nodeArgv(rpc.ServerKindSyntax, opts, dir)

	require.GreaterOrEqual(t, len(argv), 3)
	assert.Equal(t, "--max-old-space-size=4096", argv[0])
	assert.Equal(t, "/lib/tsserver.js", argv[1])
	assert.Contains(t, argv[2:], "--stdio")
}

func TestNodeArgvWithoutMemoryLimitStartsWithScript(t *testing.T) {
	dir := t.TempDir()
	argv := nodeArgv(rpc.ServerKindSyntax, LaunchOptions{ScriptPath: "/lib/tsserver.js"}, dir)
	assert.Equal(t, "/lib/tsserver.js", argv[0])
}

func TestBuildArgsNamesLogFileByServerKind(t *testing.T) {
	dir := t.TempDir()
	args := buildArgs(rpc.ServerKindSemantic, LaunchOptions{LogDirectory: "/logs"}, dir)
	assert.Contains(t, args, filepath.Join("/logs", "tsserver-semantic.log"))
}

func TestCancelWritesSentinelFile(t *testing.T) {
	dir := t.TempDir()
	p := &Process{cancelDir: dir, Kind: "syntax"}
	require.NoError(t, p.Cancel(42))

	_, err := os.Stat(filepath.Join(dir, "seq_42"))
	assert.NoError(t, err)
}

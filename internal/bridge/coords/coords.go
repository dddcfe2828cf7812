// Package coords converts between LSP's zero-based UTF-16 coordinates and
// tsserver's one-based line/offset coordinates, and between file:// URIs
// and filesystem paths.
package coords

import (
	"net/url"
	"runtime"
	"strings"
)

// TSPosition is a one-based tsserver line/offset pair.
type TSPosition struct {
	Line   int
	Offset int
}

// ToTSServer converts an LSP zero-based (line, character) into tsserver's
// one-based (line, offset): ts.line = lsp.line + 1; ts.offset =
// lsp.character + 1.
func ToTSServer(line, character int) TSPosition {
	return TSPosition{Line: line + 1, Offset: character + 1}
}

// FromTSServer is the inverse conversion, saturating at zero so a
// malformed or boundary tsserver position never goes negative.
func FromTSServer(pos TSPosition) (line, character int) {
	return saturatingSub1(pos.Line), saturatingSub1(pos.Offset)
}

func saturatingSub1(v int) int {
	if v <= 0 {
		return 0
	}
	return v - 1
}

// URIToFilePath decodes a file:// URI to an absolute filesystem path.
// zipfile:// and other non-file schemes are returned unchanged, matching
// tsserver's own pass-through handling of virtual file identifiers. An
// empty ok=false result means the URI could not be parsed at all.
func URIToFilePath(uri string) (string, bool) {
	if uri == "" {
		return "", false
	}
	if !strings.HasPrefix(uri, "file://") {
		// Non-file scheme (zipfile://, untitled:, etc.) passes through
		// unchanged; tsserver never sees these as real files.
		return uri, true
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", false
	}

	// url.Parse already percent-decodes the path component.
	path := u.Path
	if runtime.GOOS == "windows" {
		path = strings.TrimPrefix(path, "/")
	}
	return path, true
}

// FilePathToURI wraps an absolute filesystem path back into a file:// URI.
// Inputs that are already a non-file URI (zipfile://, etc.) are returned
// unchanged.
func FilePathToURI(path string) string {
	if strings.Contains(path, "://") {
		return path
	}

	p := filepathToSlash(path)
	if runtime.GOOS == "windows" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

func filepathToSlash(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// ScriptKindFromLanguage maps an LSP languageId to the tsserver scriptKind
// value expected in the open/updateOpen file entry.
func ScriptKindFromLanguage(languageID string) string {
	switch languageID {
	case "javascript":
		return "JS"
	case "javascriptreact":
		return "JSX"
	case "typescriptreact":
		return "TSX"
	case "json", "jsonc":
		return "JSON"
	case "typescript":
		return "TS"
	default:
		return "TS"
	}
}

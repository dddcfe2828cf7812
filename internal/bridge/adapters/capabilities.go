// Package adapters implements the pure (lsp-params) -> RequestSpec and
// (tsserver-response, context) -> AdapterResult translators, one file per
// LSP surface area.
package adapters

import (
	"encoding/json"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// SemanticTokenTypes is the legend's type list; order is significant.
var SemanticTokenTypes = []string{
	"namespace", "type", "class", "interface", "enum", "enumMember",
	"typeParameter", "function", "method", "property", "variable",
	"parameter", "keyword", "string", "number",
}

// SemanticTokenModifiers is the legend's modifier list, order significant.
var SemanticTokenModifiers = []string{
	"declaration", "definition", "readonly", "static", "async",
	"abstract", "deprecated", "defaultLibrary",
}

// UserCommands is the workspace/executeCommand vocabulary.
var UserCommands = []string{
	"TSBOrganizeImports",
	"TSBSortImports",
	"TSBRemoveUnusedImports",
	"TSBRemoveUnused",
	"TSBAddMissingImports",
	"TSBFixAll",
	"TSBGoToSourceDefinition",
	"TSBRenameFile",
	"TSBFileReferences",
	"TSBRestartProject",
}

// ServerCapabilities builds the advertised capability set.
// inlayHintEnabled gates whether inlayHint is advertised at all.
//
// The result is a plain map rather than protocol.ServerCapabilities
// because two of the required toggles (positionEncoding, the inlay-hint
// provider) postdate the 3.16 schema glsp's typed struct covers; the
// typed struct is built first and the newer fields injected after
// marshalling.
func ServerCapabilities(inlayHintEnabled bool) map[string]interface{} {
	syncKind := protocol.TextDocumentSyncKindIncremental
	boolTrue := true

	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &boolTrue,
			Change:    &syncKind,
			Save: &protocol.SaveOptions{
				IncludeText: nil,
			},
		},
		HoverProvider:          boolTrue,
		DefinitionProvider:     boolTrue,
		ReferencesProvider:     boolTrue,
		TypeDefinitionProvider: boolTrue,
		DocumentSymbolProvider: boolTrue,
		WorkspaceSymbolProvider: boolTrue,
		CompletionProvider: &protocol.CompletionOptions{
			ResolveProvider:   &boolTrue,
			TriggerCharacters: []string{".", "\"", "'", "`", "/", "@", "<", "#", " "},
		},
		SignatureHelpProvider: &protocol.SignatureHelpOptions{
			TriggerCharacters:   []string{"(", ",", "<"},
			RetriggerCharacters: []string{",", ")"},
		},
		CodeActionProvider: &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{
				protocol.CodeActionKindQuickFix,
				protocol.CodeActionKindSourceOrganizeImports,
			},
			ResolveProvider: &boolTrue,
		},
		RenameProvider: &protocol.RenameOptions{
			PrepareProvider: &boolTrue,
		},
		DocumentFormattingProvider: boolTrue,
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: protocol.SemanticTokensLegend{
				TokenTypes:     SemanticTokenTypes,
				TokenModifiers: SemanticTokenModifiers,
			},
			Range: boolTrue,
			Full:  true,
		},
		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: UserCommands,
		},
	}

	raw, _ := json.Marshal(caps)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)

	out["positionEncoding"] = "utf-16"
	if inlayHintEnabled {
		out["inlayHintProvider"] = true
	}

	return out
}

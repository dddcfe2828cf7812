package adapters

import (
	protocol3 "github.com/tliron/glsp/protocol_3_16"

	"github.com/chojs23/ts-bridge/internal/bridge/coords"
	tsbproto "github.com/chojs23/ts-bridge/internal/bridge/protocol"
	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// organizeImportsMode names tsserver's organizeImports "mode" argument.
type organizeImportsMode string

const (
	modeAll              organizeImportsMode = "All"
	modeSortAndCombine   organizeImportsMode = "SortAndCombine"
	modeRemoveUnused     organizeImportsMode = "RemoveUnused"
)

// organizeImports builds tsserver's "organizeImports" request for one of
// the three organize-import commands (All / SortAndCombine / RemoveUnused),
// shared by TSBOrganizeImports, TSBSortImports, and TSBRemoveUnusedImports.
func organizeImports(uri string, mode organizeImportsMode) tsbproto.RequestSpec {
	path, _ := coords.URIToFilePath(uri)
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "organizeImports",
			"arguments": map[string]interface{}{
				"scope": map[string]interface{}{
					"type": "file",
					"args": map[string]interface{}{"file": path},
				},
				"mode": string(mode),
			},
		},
		Context:    path,
		OnResponse: organizeImportsAdapter,
	}
}

func organizeImportsAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	file, _ := ctx.(string)
	edit := workspaceEditFromChanges(payload["body"], file)
	if edit == nil {
		edit = &protocol3.WorkspaceEdit{}
	}
	return tsbproto.Ready(*edit)
}

// OrganizeImports builds the TSBOrganizeImports command request.
func OrganizeImports(uri string) tsbproto.RequestSpec {
	return organizeImports(uri, modeAll)
}

// SortImports builds the TSBSortImports command request.
func SortImports(uri string) tsbproto.RequestSpec {
	return organizeImports(uri, modeSortAndCombine)
}

// RemoveUnusedImports builds the TSBRemoveUnusedImports command request.
func RemoveUnusedImports(uri string) tsbproto.RequestSpec {
	return organizeImports(uri, modeRemoveUnused)
}

// RemoveUnused builds the TSBRemoveUnused command request: a single
// getCombinedCodeFix pass for the unused-identifier fix id, the same
// mechanics TSBFixAll chains through but stopping after one id.
func RemoveUnused(file string) tsbproto.RequestSpec {
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "getCombinedCodeFix",
			"arguments": map[string]interface{}{
				"scope": map[string]interface{}{
					"type": "file",
					"args": map[string]interface{}{"file": file},
				},
				"fixId": "unusedIdentifier_delete",
			},
		},
		Context:    file,
		OnResponse: singleCombinedFixAdapter,
	}
}

// AddMissingImports builds the TSBAddMissingImports command request: a
// single getCombinedCodeFix pass for the missing-import fix id.
func AddMissingImports(file string) tsbproto.RequestSpec {
	return tsbproto.RequestSpec{
		Route:    rpc.RouteSemantic,
		Priority: rpc.PriorityNormal,
		Payload: map[string]interface{}{
			"command": "getCombinedCodeFix",
			"arguments": map[string]interface{}{
				"scope": map[string]interface{}{
					"type": "file",
					"args": map[string]interface{}{"file": file},
				},
				"fixId": "fixMissingImport",
			},
		},
		Context:    file,
		OnResponse: singleCombinedFixAdapter,
	}
}

func singleCombinedFixAdapter(payload map[string]interface{}, ctx interface{}) (tsbproto.AdapterResult, error) {
	file, _ := ctx.(string)
	body, _ := payload["body"].(map[string]interface{})
	var edit *protocol3.WorkspaceEdit
	if body != nil {
		edit = workspaceEditFromChanges(body["changes"], file)
	}
	if edit == nil {
		edit = &protocol3.WorkspaceEdit{}
	}
	return tsbproto.Ready(*edit)
}

// Package protocol defines the pipeline contract every LSP-method adapter
// implements: pure functions turning LSP params into a RequestSpec, and
// turning a tsserver response into an AdapterResult.
package protocol

import (
	"encoding/json"

	"github.com/chojs23/ts-bridge/internal/bridge/rpc"
)

// ResponseAdapter turns a successful tsserver response payload (plus the
// opaque context carried in the PendingEntry) into an AdapterResult. It
// never panics; parse failures are returned as errors and surfaced to the
// client as InternalError.
type ResponseAdapter func(payload map[string]interface{}, context interface{}) (AdapterResult, error)

// AdapterResult is the sum type an adapter returns: either the chain is
// done and Value should go back to the LSP client, or Next names a
// follow-up request to dispatch before replying.
type AdapterResult struct {
	Ready bool
	Value json.RawMessage
	Next  *RequestSpec
}

// Ready wraps a final value for the client.
func Ready(value interface{}) (AdapterResult, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return AdapterResult{}, err
	}
	return AdapterResult{Ready: true, Value: raw}, nil
}

// Continue wraps a follow-up request, carried forward with the same LSP
// request id and post-process hook by the pending table.
func Continue(next RequestSpec) (AdapterResult, error) {
	return AdapterResult{Ready: false, Next: &next}, nil
}

// PostProcess runs after a Ready result, before the reply is sent to the
// client, and may mutate session-local caches (e.g. the inlay-hint cache).
type PostProcess func(value json.RawMessage, context interface{})

// RequestSpec is what an LSP-method adapter builds from request params: a
// routed tsserver command plus everything needed to resolve its reply.
type RequestSpec struct {
	Route         rpc.Route
	Payload       map[string]interface{}
	Priority      rpc.Priority
	OnResponse    ResponseAdapter
	Context       interface{}
	PostProcess   PostProcess
	WorkDoneToken string
}

// NotificationSpec is a fire-and-forget tsserver command with no reply
// correlation (updateOpen, geterr, configure).
type NotificationSpec struct {
	Route    rpc.Route
	Payload  map[string]interface{}
	Priority rpc.Priority
}

package invoke

import (
	"strings"

	"github.com/google/uuid"
)

const (
	callSuffix = ":call"
	sendSuffix = ":sendTx"
)

// NewReferenceID returns an 8-character token used to correlate a write
// submission with later status checks. The gateway is authoritative for
// uniqueness; the client treats the token as opaque.
func NewReferenceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// EncodeRequest builds the target path and request body for an invocation.
// Read calls carry only the arguments; writes additionally carry transaction
// metadata with the client-side reference id. refID is ignored for reads.
//
// EncodeRequest is pure and does not validate that the binding matches the
// descriptor's contract; a bad lookup surfaces in the engine.
func EncodeRequest(binding Binding, d Descriptor, refID string) (path string, body map[string]any) {
	args := d.Args
	if args == nil {
		args = map[string]any{}
	}
	if d.ReadOnly {
		return binding.Path + "/" + d.Method + callSuffix, map[string]any{
			"arguments": args,
		}
	}
	return binding.Path + "/" + d.Method + sendSuffix, map[string]any{
		"txMeta": map[string]any{
			"executionMode": "",
			"referenceId":   refID,
		},
		"arguments": args,
	}
}

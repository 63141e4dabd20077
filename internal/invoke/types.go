// Package invoke submits smart-contract invocations to a ledger gateway and
// determines their outcome. Reads resolve in one round trip; writes are
// accepted immediately and confirmed by polling transaction status until a
// terminal state.
package invoke

// Descriptor describes one contract invocation. It is immutable input to a
// single call.
type Descriptor struct {
	Contract string
	Method   string
	Args     map[string]any
	ReadOnly bool
}

// Binding is the resolved routing info for one deployed contract.
type Binding struct {
	ID   string
	Path string
}

package invoke

import (
	"fmt"

	"github.com/signalnine/ledgermark/internal/gateway"
)

// GatewayError is an authoritative failure reported by the gateway inside a
// well-formed response. It is never retried.
type GatewayError struct {
	Detail any
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway reported error: %v", e.Detail)
}

// StateError is a status response whose state is terminal but not SUCCESS.
// Only SUCCESS counts as definite success; everything else is conservatively
// classified as failure, with the payload kept as diagnostic.
type StateError struct {
	State   string
	Payload gateway.Response
}

func (e *StateError) Error() string {
	return fmt.Sprintf("unexpected terminal state %q", e.State)
}

// TimeoutError is returned when the poll budget is exhausted before the
// gateway reports a terminal state.
type TimeoutError struct {
	Reference string
	Polls     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not terminal after %d status checks", e.Reference, e.Polls)
}

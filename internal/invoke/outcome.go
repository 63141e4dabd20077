package invoke

import (
	"time"

	"github.com/signalnine/ledgermark/internal/gateway"
)

// Outcome is the normalized result of one invocation. Succeeded and Verified
// travel together: the engine never claims success it could not verify
// against a well-formed gateway response.
type Outcome struct {
	Succeeded bool
	Verified  bool
	Result    gateway.Response
	Err       error
	Polls     int
	Duration  time.Duration
}

func succeeded(result gateway.Response, polls int) Outcome {
	return Outcome{Succeeded: true, Verified: true, Result: result, Polls: polls}
}

func failed(err error, diagnostic gateway.Response, polls int) Outcome {
	return Outcome{Err: err, Result: diagnostic, Polls: polls}
}

package invoke

import (
	"context"
	"time"

	"github.com/signalnine/ledgermark/internal/gateway"
)

// Transaction states reported by the gateway. Anything terminal other than
// SUCCESS is treated as failure.
const (
	StatePending = "PENDING"
	StateSuccess = "SUCCESS"
)

// PollPolicy bounds the confirmation wait for one write invocation.
// MaxPolls <= 0 polls until a terminal state with no upper bound.
type PollPolicy struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxPolls     int
}

// DefaultPollPolicy matches the cadence the gateway is designed for: a short
// grace period so the submission is durably recorded before the first check,
// then a fixed interval, bounded at roughly a minute of waiting.
var DefaultPollPolicy = PollPolicy{
	InitialDelay: 200 * time.Millisecond,
	Interval:     500 * time.Millisecond,
	MaxPolls:     120,
}

// StatusChecker is the single transport call the poller depends on.
type StatusChecker interface {
	CheckStatus(ctx context.Context, referenceID string) (gateway.Response, error)
}

// awaitConfirmation polls transaction status for referenceID until a terminal
// state, the poll budget, or ctx ends the wait. Polls are strictly
// sequential; a transport error stops polling immediately (no retry, so the
// harness measures true availability). Error-carrying responses are terminal
// and their state field is never consulted.
//
// The returned response is the last one received, also on failure, so the
// caller can surface it as a diagnostic.
func awaitConfirmation(ctx context.Context, checker StatusChecker, referenceID string, policy PollPolicy) (gateway.Response, int, error) {
	if err := sleep(ctx, policy.InitialDelay); err != nil {
		return nil, 0, err
	}
	polls := 0
	for {
		resp, err := checker.CheckStatus(ctx, referenceID)
		polls++
		if err != nil {
			return nil, polls, err
		}
		if detail, ok := resp.ErrorField(); ok {
			return resp, polls, &GatewayError{Detail: detail}
		}
		switch state := resp.State(); state {
		case StateSuccess:
			return resp, polls, nil
		case StatePending:
		default:
			return resp, polls, &StateError{State: state, Payload: resp}
		}
		if policy.MaxPolls > 0 && polls >= policy.MaxPolls {
			return resp, polls, &TimeoutError{Reference: referenceID, Polls: polls}
		}
		if err := sleep(ctx, policy.Interval); err != nil {
			return resp, polls, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

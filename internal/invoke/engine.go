package invoke

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalnine/ledgermark/internal/gateway"
)

// Transport is the pair of gateway calls the engine needs.
type Transport interface {
	Submit(ctx context.Context, path string, body any) (gateway.Response, error)
	StatusChecker
}

// Engine runs invocations against one gateway. It is assembled once per
// benchmark round and is immutable afterwards, so any number of concurrent
// Invoke calls may share it without synchronization.
type Engine struct {
	gw       Transport
	bindings map[string]Binding
	policy   PollPolicy
	log      *slog.Logger
}

func NewEngine(gw Transport, bindings map[string]Binding, policy PollPolicy, log *slog.Logger) *Engine {
	if policy == (PollPolicy{}) {
		policy = DefaultPollPolicy
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{gw: gw, bindings: bindings, policy: policy, log: log}
}

// Invoke submits one invocation and blocks until its outcome is known. Reads
// resolve on the submit response; writes are confirmed by polling until a
// terminal state. Invoke never returns an error: every fault is normalized
// into the Outcome so one failed invocation cannot abort the others.
func (e *Engine) Invoke(ctx context.Context, d Descriptor) Outcome {
	start := time.Now()
	out := e.invoke(ctx, d)
	out.Duration = time.Since(start)
	if out.Err != nil {
		e.log.Error("invocation failed",
			"contract", d.Contract,
			"method", d.Method,
			"error", out.Err)
	}
	return out
}

func (e *Engine) invoke(ctx context.Context, d Descriptor) Outcome {
	binding, ok := e.bindings[d.Contract]
	if !ok {
		return failed(fmt.Errorf("no binding for contract %q", d.Contract), nil, 0)
	}
	refID := ""
	if !d.ReadOnly {
		refID = NewReferenceID()
	}
	path, body := EncodeRequest(binding, d, refID)

	resp, err := e.gw.Submit(ctx, path, body)
	if err != nil {
		return failed(err, nil, 0)
	}
	if detail, ok := resp.ErrorField(); ok {
		// Rejected at submission: terminal, no polling.
		return failed(&GatewayError{Detail: detail}, resp, 0)
	}
	if d.ReadOnly {
		return succeeded(resp, 0)
	}

	// The gateway echoes back a server-assigned reference; status checks use
	// that one, not the client-side id.
	serverRef := resp.Reference()
	if serverRef == "" {
		return failed(&GatewayError{Detail: "submit response missing output.referenceId"}, resp, 0)
	}
	final, polls, err := awaitConfirmation(ctx, e.gw, serverRef, e.policy)
	if err != nil {
		return failed(err, final, polls)
	}
	return succeeded(final, polls)
}

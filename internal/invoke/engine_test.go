package invoke_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalnine/ledgermark/internal/gateway"
	"github.com/signalnine/ledgermark/internal/invoke"
)

type statusReply struct {
	resp gateway.Response
	err  error
}

// fakeGateway scripts submit and status responses and records every call.
type fakeGateway struct {
	mu          sync.Mutex
	submitPaths []string
	submitBody  map[string]any
	submitResp  gateway.Response
	submitErr   error
	statusRefs  []string
	statusTimes []time.Time
	statusQueue []statusReply
}

func (f *fakeGateway) Submit(ctx context.Context, path string, body any) (gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitPaths = append(f.submitPaths, path)
	f.submitBody, _ = body.(map[string]any)
	return f.submitResp, f.submitErr
}

func (f *fakeGateway) CheckStatus(ctx context.Context, ref string) (gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusRefs = append(f.statusRefs, ref)
	f.statusTimes = append(f.statusTimes, time.Now())
	if len(f.statusQueue) == 0 {
		return gateway.Response{"state": invoke.StatePending}, nil
	}
	reply := f.statusQueue[0]
	if len(f.statusQueue) > 1 {
		f.statusQueue = f.statusQueue[1:]
	}
	return reply.resp, reply.err
}

var testBindings = map[string]invoke.Binding{
	"Asset": {ID: "Asset", Path: "/assets"},
}

var testPolicy = invoke.PollPolicy{
	InitialDelay: time.Millisecond,
	Interval:     time.Millisecond,
	MaxPolls:     50,
}

func newTestEngine(gw *fakeGateway, policy invoke.PollPolicy) *invoke.Engine {
	return invoke.NewEngine(gw, testBindings, policy, nil)
}

func TestReadCall(t *testing.T) {
	gw := &fakeGateway{submitResp: gateway.Response{"value": 42}}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "getValue",
		Args: map[string]any{"id": "1"}, ReadOnly: true,
	})

	if !out.Succeeded || !out.Verified {
		t.Errorf("got succeeded=%v verified=%v, want both true", out.Succeeded, out.Verified)
	}
	if out.Result["value"] != 42 {
		t.Errorf("result: got %v", out.Result)
	}
	if len(gw.submitPaths) != 1 {
		t.Fatalf("submit calls: got %d, want 1", len(gw.submitPaths))
	}
	if gw.submitPaths[0] != "/assets/getValue:call" {
		t.Errorf("submit path: got %q", gw.submitPaths[0])
	}
	if len(gw.statusRefs) != 0 {
		t.Errorf("read call made %d status checks, want 0", len(gw.statusRefs))
	}
}

func TestWriteCallConfirmed(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r1"}},
		statusQueue: []statusReply{
			{resp: gateway.Response{"state": invoke.StatePending}},
			{resp: gateway.Response{"state": invoke.StateSuccess, "output": map[string]any{"done": true}}},
		},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
		Args: map[string]any{"id": "1", "value": "99"},
	})

	if !out.Succeeded || !out.Verified {
		t.Errorf("got succeeded=%v verified=%v, want both true", out.Succeeded, out.Verified)
	}
	if out.Polls != 2 {
		t.Errorf("polls: got %d, want 2", out.Polls)
	}
	if len(gw.statusRefs) != 2 {
		t.Fatalf("status checks: got %d, want 2", len(gw.statusRefs))
	}
	for _, ref := range gw.statusRefs {
		if ref != "r1" {
			t.Errorf("status check used ref %q, want server-assigned %q", ref, "r1")
		}
	}
	if gw.submitPaths[0] != "/assets/setValue:sendTx" {
		t.Errorf("submit path: got %q", gw.submitPaths[0])
	}
	meta, _ := gw.submitBody["txMeta"].(map[string]any)
	if ref, _ := meta["referenceId"].(string); len(ref) != 8 {
		t.Errorf("client reference id: got %q, want 8 characters", ref)
	}
}

func TestSubmitRejected(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"error": map[string]any{"message": "revert"}},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded || out.Verified {
		t.Errorf("got succeeded=%v verified=%v, want both false", out.Succeeded, out.Verified)
	}
	var gerr *invoke.GatewayError
	if !errors.As(out.Err, &gerr) {
		t.Errorf("error: got %T, want *GatewayError", out.Err)
	}
	if len(gw.statusRefs) != 0 {
		t.Errorf("rejected submit made %d status checks, want 0", len(gw.statusRefs))
	}
}

func TestStatusTransportErrorStopsPolling(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r2"}},
		statusQueue: []statusReply{
			{err: &gateway.TransportError{Op: "status", URL: "u", Err: errors.New("connection refused")}},
		},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded {
		t.Error("expected failure on transport error")
	}
	var terr *gateway.TransportError
	if !errors.As(out.Err, &terr) {
		t.Errorf("error: got %T, want *TransportError", out.Err)
	}
	if len(gw.statusRefs) != 1 {
		t.Errorf("status checks after transport error: got %d, want 1", len(gw.statusRefs))
	}
}

func TestUnexpectedTerminalState(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r3"}},
		statusQueue: []statusReply{
			{resp: gateway.Response{"state": "REVERTED"}},
		},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded {
		t.Error("only SUCCESS counts as success")
	}
	var serr *invoke.StateError
	if !errors.As(out.Err, &serr) {
		t.Fatalf("error: got %T, want *StateError", out.Err)
	}
	if serr.State != "REVERTED" {
		t.Errorf("state: got %q, want %q", serr.State, "REVERTED")
	}
}

func TestErrorPayloadStateIgnored(t *testing.T) {
	// An error-carrying status response is terminal even if it also claims
	// state SUCCESS; the state field of an error payload is never trusted.
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r4"}},
		statusQueue: []statusReply{
			{resp: gateway.Response{"state": invoke.StateSuccess, "error": map[string]any{"message": "late failure"}}},
		},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded {
		t.Error("error payload must be terminal failure")
	}
	var gerr *invoke.GatewayError
	if !errors.As(out.Err, &gerr) {
		t.Errorf("error: got %T, want *GatewayError", out.Err)
	}
	if len(gw.statusRefs) != 1 {
		t.Errorf("status checks: got %d, want 1", len(gw.statusRefs))
	}
}

func TestPollTiming(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r7"}},
		statusQueue: []statusReply{
			{resp: gateway.Response{"state": invoke.StatePending}},
			{resp: gateway.Response{"state": invoke.StatePending}},
			{resp: gateway.Response{"state": invoke.StateSuccess}},
		},
	}
	policy := invoke.PollPolicy{
		InitialDelay: 20 * time.Millisecond,
		Interval:     30 * time.Millisecond,
		MaxPolls:     10,
	}
	engine := newTestEngine(gw, policy)

	start := time.Now()
	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if !out.Succeeded {
		t.Fatalf("invocation failed: %v", out.Err)
	}
	if len(gw.statusTimes) != 3 {
		t.Fatalf("status checks: got %d, want 3", len(gw.statusTimes))
	}
	if first := gw.statusTimes[0].Sub(start); first < policy.InitialDelay {
		t.Errorf("first check after %v, want >= %v", first, policy.InitialDelay)
	}
	for i := 1; i < len(gw.statusTimes); i++ {
		if gap := gw.statusTimes[i].Sub(gw.statusTimes[i-1]); gap < policy.Interval {
			t.Errorf("check %d only %v after the previous, want >= %v", i, gap, policy.Interval)
		}
	}
}

func TestPollBudgetExhausted(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r5"}},
	}
	policy := testPolicy
	policy.MaxPolls = 3
	engine := newTestEngine(gw, policy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded {
		t.Error("expected timeout failure")
	}
	var toErr *invoke.TimeoutError
	if !errors.As(out.Err, &toErr) {
		t.Fatalf("error: got %T, want *TimeoutError", out.Err)
	}
	if toErr.Polls != 3 || len(gw.statusRefs) != 3 {
		t.Errorf("polls: got %d (calls %d), want 3", toErr.Polls, len(gw.statusRefs))
	}
}

func TestMissingServerReference(t *testing.T) {
	gw := &fakeGateway{submitResp: gateway.Response{"output": map[string]any{}}}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "setValue",
	})

	if out.Succeeded {
		t.Error("expected failure when submit response lacks output.referenceId")
	}
	if len(gw.statusRefs) != 0 {
		t.Errorf("status checks without a reference: got %d, want 0", len(gw.statusRefs))
	}
}

func TestUnknownContract(t *testing.T) {
	gw := &fakeGateway{}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Nope", Method: "getValue", ReadOnly: true,
	})

	if out.Succeeded {
		t.Error("expected failure for unbound contract")
	}
	if len(gw.submitPaths) != 0 {
		t.Errorf("submit calls for unbound contract: got %d, want 0", len(gw.submitPaths))
	}
}

func TestSubmitTransportError(t *testing.T) {
	gw := &fakeGateway{
		submitErr: &gateway.TransportError{Op: "submit", URL: "u", Err: errors.New("timeout")},
	}
	engine := newTestEngine(gw, testPolicy)

	out := engine.Invoke(context.Background(), invoke.Descriptor{
		Contract: "Asset", Method: "getValue", ReadOnly: true,
	})

	if out.Succeeded || out.Verified {
		t.Errorf("got succeeded=%v verified=%v, want both false", out.Succeeded, out.Verified)
	}
	if out.Err == nil {
		t.Error("expected error in outcome")
	}
}

func TestContextCancelStopsWait(t *testing.T) {
	gw := &fakeGateway{
		submitResp: gateway.Response{"output": map[string]any{"referenceId": "r6"}},
	}
	policy := invoke.PollPolicy{
		InitialDelay: time.Millisecond,
		Interval:     time.Hour,
		MaxPolls:     10,
	}
	engine := newTestEngine(gw, policy)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan invoke.Outcome, 1)
	go func() {
		done <- engine.Invoke(ctx, invoke.Descriptor{Contract: "Asset", Method: "setValue"})
	}()

	select {
	case out := <-done:
		if out.Succeeded {
			t.Error("canceled invocation must not succeed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("invocation did not stop on context cancel")
	}
}

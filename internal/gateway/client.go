// Package gateway is the HTTP transport for a ledger gateway: it submits
// contract invocations and checks transaction status. It does not retry and
// does not interpret semantic errors carried inside a well-formed JSON body;
// both policies belong to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const statusPath = "/_services/transactions/"

// Response is a parsed JSON object returned by the gateway.
type Response map[string]any

// ErrorField returns the gateway-level error payload, if the response
// carries one.
func (r Response) ErrorField() (any, bool) {
	v, ok := r["error"]
	return v, ok && v != nil
}

// State returns the transaction state field, or "" when absent.
func (r Response) State() string {
	s, _ := r["state"].(string)
	return s
}

// Output returns the nested output object, or nil when absent.
func (r Response) Output() Response {
	m, _ := r["output"].(map[string]any)
	return Response(m)
}

// Reference returns the server-assigned reference id from output.referenceId.
func (r Response) Reference() string {
	ref, _ := r.Output()["referenceId"].(string)
	return ref
}

// TransportError is a network or parse failure on a gateway call. Semantic
// failures reported inside a JSON body are not transport errors. Parse is set
// when the gateway answered but the body was not valid JSON; callers can use
// it to tell an unreachable gateway from a misbehaving one.
type TransportError struct {
	Op    string
	URL   string
	Parse bool
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthHeaders builds the tenant/application identity headers the gateway
// expects on every call.
func AuthHeaders(userID, applicationID string) map[string]string {
	return map[string]string{
		"X-Auth-Userid":        userID,
		"X-Auth-ApplicationId": applicationID,
	}
}

// Client performs submit and status-check calls against one gateway base URL
// with a fixed header set. It is safe for concurrent use.
type Client struct {
	baseURL string
	headers map[string]string
	hc      *http.Client
}

func NewClient(baseURL string, headers map[string]string) *Client {
	return &Client{
		baseURL: baseURL,
		headers: headers,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit POSTs an encoded invocation body to baseURL+path and returns the
// parsed JSON reply. The HTTP status code is not interpreted: gateways report
// invocation failures inside the body, which the caller inspects.
func (c *Client) Submit(ctx context.Context, path string, body any) (Response, error) {
	url := c.baseURL + path
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Op: "submit", URL: url, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "submit", URL: url, Err: err}
	}
	return c.do("submit", req)
}

// CheckStatus GETs the status of a submitted transaction by its
// server-assigned reference id.
func (c *Client) CheckStatus(ctx context.Context, referenceID string) (Response, error) {
	url := c.baseURL + statusPath + referenceID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "status", URL: url, Err: err}
	}
	return c.do("status", req)
}

func (c *Client) do(op string, req *http.Request) (Response, error) {
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	var parsed Response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Parse: true, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return parsed, nil
}

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/logging"
)

// DefaultBaseURL is used when nothing is configured.
const DefaultBaseURL = "http://localhost:3000"

// BaseURLSource yields the server base address. It is consulted on every
// request, so a changed setting applies to the next call.
type BaseURLSource interface {
	BaseURL() string
}

// StaticBaseURL is a fixed base address.
type StaticBaseURL string

func (s StaticBaseURL) BaseURL() string {
	if s == "" {
		return DefaultBaseURL
	}
	return string(s)
}

type Client struct {
	base       BaseURLSource
	httpClient *http.Client
}

// NewClient returns a client resolving its base address through base. A nil
// base means DefaultBaseURL.
func NewClient(base BaseURLSource) *Client {
	if base == nil {
		base = StaticBaseURL("")
	}
	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient returns a copy of c sending through hc.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	return &cp
}

// Options describes one request. Body may be a pre-serialized JSON string,
// []byte or json.RawMessage, or any value json.Marshal accepts.
type Options struct {
	Method string
	Body   any
	Query  map[string]string
	Header http.Header
}

// Result is a completed exchange. Value is nil for an empty body, the
// decoded JSON otherwise, or the raw text when the body is not JSON.
type Result struct {
	Status int
	Raw    []byte
	Value  any
}

// Do issues one request against the current base address. It fails only
// for an invalid body (before sending) or a transport failure; the status
// code is left for the caller to interpret.
func (c *Client) Do(ctx context.Context, path string, opts Options) (*Result, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	payload, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	target := strings.TrimRight(c.base.BaseURL(), "/") + path
	if len(opts.Query) > 0 {
		q := url.Values{}
		for k, v := range opts.Query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransport, "build request", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	logging.Debug("api request", map[string]interface{}{
		"method":     method,
		"url":        target,
		"request_id": requestID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransport, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransport, fmt.Sprintf("read %s %s", method, path), err)
	}

	logging.Debug("api response", map[string]interface{}{
		"status":     resp.StatusCode,
		"bytes":      len(raw),
		"request_id": requestID,
	})

	return &Result{
		Status: resp.StatusCode,
		Raw:    raw,
		Value:  decodeValue(raw),
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	var data []byte
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(b)
	case []byte:
		data = b
	case json.RawMessage:
		data = b
	default:
		out, err := json.Marshal(b)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidRequestBody, "encode request body", err)
		}
		return out, nil
	}

	if !json.Valid(data) {
		return nil, apperr.New(apperr.ErrInvalidRequestBody, "request body is not valid JSON")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// decodeValue turns a response body into a result value. Non-JSON text is
// returned as is instead of failing.
func decodeValue(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.Debug("response is not JSON, returning raw text", map[string]interface{}{"error": err.Error()})
		return string(raw)
	}
	return v
}

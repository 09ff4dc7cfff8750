package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-restclient/core"
)

// StaticTransport answers every request with the same canned response, or
// with Err when set. It records the requests it receives.
type StaticTransport struct {
	StatusCode int
	Reason     string
	Headers    map[string]string
	Body       []byte
	Err        error

	mu       sync.Mutex
	requests []core.TransportRequest
}

func NewStaticTransport(statusCode int, reason string, body []byte) *StaticTransport {
	return &StaticTransport{
		StatusCode: statusCode,
		Reason:     strings.TrimSpace(reason),
		Headers:    map[string]string{},
		Body:       append([]byte(nil), body...),
	}
}

// NewFailingTransport never produces a response.
func NewFailingTransport(err error) *StaticTransport {
	if err == nil {
		err = fmt.Errorf("transport: connection refused")
	}
	return &StaticTransport{Err: err}
}

func (t *StaticTransport) Execute(ctx context.Context, req core.TransportRequest) (*core.Response, error) {
	if t == nil {
		return nil, fmt.Errorf("transport: static transport is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	if t.Err != nil {
		return nil, t.Err
	}
	status := t.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	reason := t.Reason
	if reason == "" {
		reason = http.StatusText(status)
	}
	return &core.Response{
		URL:        req.URL,
		StatusCode: status,
		Reason:     reason,
		Headers:    cloneHeaders(t.Headers),
		Body:       append([]byte(nil), t.Body...),
		Metadata:   map[string]any{"transport": "static"},
	}, nil
}

func (t *StaticTransport) Requests() []core.TransportRequest {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.TransportRequest(nil), t.requests...)
}

type TransportFunc func(ctx context.Context, req core.TransportRequest) (*core.Response, error)

func (f TransportFunc) Execute(ctx context.Context, req core.TransportRequest) (*core.Response, error) {
	if f == nil {
		return nil, fmt.Errorf("transport: transport func is nil")
	}
	return f(ctx, req)
}

func cloneHeaders(input map[string]string) map[string]string {
	if len(input) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		out[trimmed] = strings.TrimSpace(value)
	}
	return out
}

var (
	_ core.Transport = (*StaticTransport)(nil)
	_ core.Transport = TransportFunc(nil)
)

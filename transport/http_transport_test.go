package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-restclient/core"
)

func TestHTTPTransport_ExecuteSendsMethodHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("q"); got != "search" {
			t.Fatalf("expected query value, got %q", got)
		}
		if got := r.Header.Get("X-Test"); got != "value" {
			t.Fatalf("expected header value, got %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if string(body) != "payload" {
			t.Fatalf("expected request body payload")
		}
		w.Header().Set("X-Server", "ok")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.Client())
	result, err := transport.Execute(context.Background(), core.TransportRequest{
		Method: "post",
		URL:    server.URL,
		Query:  map[string]string{"q": "search"},
		Headers: map[string]string{
			"X-Test": "value",
		},
		Body:    []byte("payload"),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("execute http request: %v", err)
	}
	if result.StatusCode != http.StatusAccepted {
		t.Fatalf("expected accepted status, got %d", result.StatusCode)
	}
	if result.Reason != "Accepted" {
		t.Fatalf("expected reason phrase Accepted, got %q", result.Reason)
	}
	if string(result.Body) != "done" {
		t.Fatalf("unexpected response body: %q", string(result.Body))
	}
	if result.Headers["X-Server"] != "ok" {
		t.Fatalf("expected response header")
	}
}

func TestHTTPTransport_ReturnsErrorStatusAsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"field":"name"}`))
	}))
	defer server.Close()

	result, err := NewHTTPTransport(server.Client()).Execute(context.Background(), core.TransportRequest{URL: server.URL})
	if err != nil {
		t.Fatalf("expected non-2xx to be returned as a response, got %v", err)
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", result.StatusCode)
	}
	if result.Reason != "Bad Request" {
		t.Fatalf("expected reason Bad Request, got %q", result.Reason)
	}
}

func TestNewHTTPTransport_DefaultClientTimeout(t *testing.T) {
	transport := NewHTTPTransport(nil)
	httpClient, ok := transport.Client.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client implementation")
	}
	if httpClient.Timeout != defaultHTTPClientTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultHTTPClientTimeout, httpClient.Timeout)
	}
	if transport.MaxResponseBodyBytes != defaultResponseBodyLimit {
		t.Fatalf("expected default response body limit %d, got %d", defaultResponseBodyLimit, transport.MaxResponseBodyBytes)
	}
}

func TestHTTPTransport_RequestBodyLimitOverridesTransportLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.Client())
	transport.MaxResponseBodyBytes = 1024

	_, err := transport.Execute(context.Background(), core.TransportRequest{
		Method:               "GET",
		URL:                  server.URL,
		MaxResponseBodyBytes: 4,
	})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit of 4 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ClientErrorNetworkFailure {
		t.Fatalf("expected %q text code, got %q", core.ClientErrorNetworkFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestHTTPTransport_OversizedErrorBodyIsTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance window"))
	}))
	defer server.Close()

	res, err := NewHTTPTransport(server.Client()).Execute(context.Background(), core.TransportRequest{
		URL:                  server.URL,
		MaxResponseBodyBytes: 11,
	})
	if err != nil {
		t.Fatalf("expected error response to be returned, got %v", err)
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", res.StatusCode)
	}
	if string(res.Body) != "maintenance" {
		t.Fatalf("expected body cut at the limit, got %q", string(res.Body))
	}
	if res.Metadata[MetadataBodyTruncated] != true {
		t.Fatalf("expected truncation flag, got %#v", res.Metadata)
	}
}

func TestHTTPTransport_NilClientReturnsRichError(t *testing.T) {
	var transport *HTTPTransport
	_, err := transport.Execute(context.Background(), core.TransportRequest{})
	if err == nil {
		t.Fatalf("expected nil transport error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ClientErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ClientErrorInternal, rich.TextCode)
	}
}

func TestHTTPTransport_ConnectionFailureIsExternal(t *testing.T) {
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	_, err := NewHTTPTransport(doer).Execute(context.Background(), core.TransportRequest{URL: "http://example.com"})
	if err == nil {
		t.Fatalf("expected connection failure")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
}

func TestStaticTransport_RecordsRequestsAndReturnsCannedResponse(t *testing.T) {
	transport := NewStaticTransport(http.StatusBadRequest, "invalid request", []byte("nope"))
	res, err := transport.Execute(context.Background(), core.TransportRequest{Method: http.MethodPost, URL: "http://example.com/"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest || res.Reason != "invalid request" {
		t.Fatalf("expected canned 400 invalid request, got %d %q", res.StatusCode, res.Reason)
	}
	if string(res.Body) != "nope" {
		t.Fatalf("expected canned body, got %q", string(res.Body))
	}
	requests := transport.Requests()
	if len(requests) != 1 || requests[0].Method != http.MethodPost {
		t.Fatalf("expected one recorded POST request, got %#v", requests)
	}
}

func TestFailingTransport_ReturnsError(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := NewFailingTransport(sentinel).Execute(context.Background(), core.TransportRequest{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

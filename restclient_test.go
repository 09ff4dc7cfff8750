package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newAccountServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/42":
			if r.Header.Get("Accept") != "application/json" {
				w.WriteHeader(http.StatusNotAcceptable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(account{ID: "42", Name: "ada"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"missing"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClientDefaultsToJSONOverHTTP(t *testing.T) {
	server := newAccountServer(t)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	got, res, err := Call[account](context.Background(), client, Request{URL: "accounts/42"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got.Name != "ada" || res.StatusCode != http.StatusOK {
		t.Fatalf("expected decoded account, got %#v (%d)", got, res.StatusCode)
	}
}

func TestCallReturnsHTTPFailureThroughDefaultHandler(t *testing.T) {
	server := newAccountServer(t)
	client, err := Setup(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer client.Close()

	_, res, err := Call[account](context.Background(), client, Request{URL: "accounts/7"})
	callErr := AsCallError(err)
	if callErr == nil {
		t.Fatalf("expected call error, got %v", err)
	}
	if callErr.Kind != ErrorKindHTTP || callErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected http 404 failure, got %s %d", callErr.Kind, callErr.StatusCode())
	}
	if res == nil || string(res.Body) != `{"error":"missing"}` {
		t.Fatalf("expected raw error body on response, got %#v", res)
	}
}

func TestCallAsyncDeliversOnDefaultExecutors(t *testing.T) {
	server := newAccountServer(t)
	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	delivered := make(chan account, 1)
	failed := make(chan *CallError, 1)
	err = CallAsync[account](context.Background(), client, Request{URL: "accounts/42"}, CallbackFuncs[account]{
		OnSuccess: func(body account, _ *Response) { delivered <- body },
		OnFailure: func(err *CallError) { failed <- err },
	})
	if err != nil {
		t.Fatalf("call async: %v", err)
	}

	select {
	case body := <-delivered:
		if body.ID != "42" {
			t.Fatalf("expected account 42, got %#v", body)
		}
	case callErr := <-failed:
		t.Fatalf("expected success, got %v", callErr)
	case <-time.After(2 * time.Second):
		t.Fatalf("expected async delivery")
	}
}

func TestCallKeepsStatusOfOversizedErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream exploded with a very long diagnostic"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, MaxResponseBodyBytes: 8})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	_, res, err := Call[account](context.Background(), client, Request{URL: "accounts/1"})
	callErr := AsCallError(err)
	if callErr == nil {
		t.Fatalf("expected call error, got %v", err)
	}
	if callErr.Kind != ErrorKindHTTP || callErr.StatusCode() != http.StatusBadGateway {
		t.Fatalf("expected http 502 failure, got %s %d", callErr.Kind, callErr.StatusCode())
	}
	if res == nil || len(res.Body) != 8 {
		t.Fatalf("expected truncated body on response, got %#v", res)
	}
}

package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type testJSONConverter struct{}

func (testJSONConverter) ContentType() string { return "application/json" }

func (testJSONConverter) FromBody(body []byte, target any) error {
	return json.Unmarshal(body, target)
}

func (testJSONConverter) ToBody(value any) ([]byte, error) {
	return json.Marshal(value)
}

// stubTransport answers with a fixed response or error and records requests.
type stubTransport struct {
	mu       sync.Mutex
	status   int
	reason   string
	headers  map[string]string
	body     []byte
	err      error
	requests []TransportRequest
}

func (s *stubTransport) Execute(_ context.Context, req TransportRequest) (*Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		StatusCode: status,
		Reason:     s.reason,
		Headers:    s.headers,
		Body:       append([]byte(nil), s.body...),
	}, nil
}

func (s *stubTransport) lastRequest() TransportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return TransportRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *stubTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// roleExecutor runs tasks inline and reports whether a task is currently
// executing on it.
type roleExecutor struct {
	submitted atomic.Int64
	running   atomic.Bool
}

func (e *roleExecutor) Execute(task func()) {
	e.submitted.Add(1)
	e.running.Store(true)
	defer e.running.Store(false)
	task()
}

// deferredExecutor holds tasks until flush is called.
type deferredExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (e *deferredExecutor) Execute(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
}

func (e *deferredExecutor) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

func (e *deferredExecutor) flush() {
	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

type recordingCallback[T any] struct {
	mu        sync.Mutex
	successes []T
	responses []*Response
	failures  []*CallError
	onCall    func()
}

func (c *recordingCallback[T]) Success(body T, res *Response) {
	if c.onCall != nil {
		c.onCall()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successes = append(c.successes, body)
	c.responses = append(c.responses, res)
}

func (c *recordingCallback[T]) Failure(err *CallError) {
	if c.onCall != nil {
		c.onCall()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, err)
}

func (c *recordingCallback[T]) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.successes), len(c.failures)
}

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(transport Transport, opts ...Option) (*Client, error) {
	base := []Option{
		WithTransport(transport),
		WithConverter(testJSONConverter{}),
		WithExecutors(SynchronousExecutor{}, SynchronousExecutor{}),
		WithLogger(stubLogger{}),
	}
	return NewClient(Config{BaseURL: "http://example.com/api"}, append(base, opts...)...)
}

package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Request struct {
	Method    string
	URL       string
	Headers   map[string]string
	Query     map[string]string
	Body      any
	Timeout   time.Duration
	RequestID string
	Metadata  map[string]any
}

// Response is the raw HTTP outcome of a single call attempt. Body holds the
// undecoded payload so error handlers can inspect it.
type Response struct {
	URL        string
	StatusCode int
	Reason     string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

func (r *Response) Successful() bool {
	if r == nil {
		return false
	}
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

func (r *Response) Header(name string) string {
	if r == nil || len(r.Headers) == 0 {
		return ""
	}
	if value, ok := r.Headers[name]; ok {
		return value
	}
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// TransportRequest is the fully resolved request handed to a Transport.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Metadata             map[string]any
}

type ResultEnvelope[T any] struct {
	Body     T
	Response *Response
}

// Empty is the result type for calls whose response body is ignored.
type Empty struct{}

type FailureCallback interface {
	Failure(err *CallError)
}

type Callback[T any] interface {
	FailureCallback
	Success(body T, res *Response)
}

type Executor interface {
	Execute(task func())
}

type ExecutorFunc func(task func())

func (f ExecutorFunc) Execute(task func()) {
	if f == nil || task == nil {
		return
	}
	f(task)
}

type ErrorHandler interface {
	HandleError(err *CallError) error
	HandleErrorCallback(err *CallError, callback FailureCallback)
}

type Transport interface {
	Execute(ctx context.Context, req TransportRequest) (*Response, error)
}

type Converter interface {
	ContentType() string
	FromBody(body []byte, target any) error
	ToBody(value any) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type RequestIDGenerator func() string

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

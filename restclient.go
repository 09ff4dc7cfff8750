package restclient

import (
	"context"

	"github.com/goliatone/go-restclient/converter"
	"github.com/goliatone/go-restclient/core"
	"github.com/goliatone/go-restclient/transport"
)

type Config = core.Config

type Option = core.Option

type Client = core.Client

type ClientDependencies = core.ClientDependencies

type Request = core.Request
type Response = core.Response
type Empty = core.Empty

type CallError = core.CallError
type ErrorKind = core.ErrorKind
type ErrorHandler = core.ErrorHandler
type ErrorHandlerFuncs = core.ErrorHandlerFuncs

type FailureCallback = core.FailureCallback
type Callback[T any] = core.Callback[T]
type CallbackFuncs[T any] = core.CallbackFuncs[T]

type Executor = core.Executor
type ExecutorFunc = core.ExecutorFunc
type Transport = core.Transport
type Converter = core.Converter
type MetricsRecorder = core.MetricsRecorder

const (
	ErrorKindNetwork    = core.ErrorKindNetwork
	ErrorKindHTTP       = core.ErrorKindHTTP
	ErrorKindConversion = core.ErrorKindConversion
	ErrorKindUnexpected = core.ErrorKindUnexpected
)

var DefaultErrorHandler = core.DefaultErrorHandler

var ErrClientClosed = core.ErrClientClosed

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorHandler       = core.WithErrorHandler
	WithErrorMapper        = core.WithErrorMapper
	WithTransport          = core.WithTransport
	WithConverter          = core.WithConverter
	WithExecutors          = core.WithExecutors
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithRequestIDGenerator = core.WithRequestIDGenerator
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewClient builds a client that talks JSON over net/http unless options
// replace the transport or converter.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	defaults := []Option{
		core.WithTransport(transport.NewHTTPTransport(nil)),
		core.WithConverter(converter.JSON{}),
	}
	return core.NewClient(cfg, append(defaults, opts...)...)
}

func Setup(cfg Config, opts ...Option) (*Client, error) {
	return NewClient(cfg, opts...)
}

func Call[T any](ctx context.Context, c *Client, req Request) (T, *Response, error) {
	return core.Call[T](ctx, c, req)
}

func CallAsync[T any](ctx context.Context, c *Client, req Request, callback Callback[T]) error {
	return core.CallAsync[T](ctx, c, req, callback)
}

func AsCallError(err error) *CallError {
	return core.AsCallError(err)
}

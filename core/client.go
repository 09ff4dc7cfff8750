package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-Id"

var ErrClientClosed = errors.New("core: client is closed")

type Client struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorHandler     ErrorHandler
	errorMapper      ErrorMapper
	transport        Transport
	converter        Converter
	workerExecutor   Executor
	callbackExecutor Executor
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	requestID        RequestIDGenerator

	closed    atomic.Bool
	closeOnce sync.Once
	owned     []io.Closer
}

type ClientDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorHandler     ErrorHandler
	ErrorMapper      ErrorMapper
	Transport        Transport
	Converter        Converter
	WorkerExecutor   Executor
	CallbackExecutor Executor
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(defaultClientName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(defaultClientName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.errorHandler == nil {
		builder.errorHandler = DefaultErrorHandler
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.requestID == nil {
		builder.requestID = uuid.NewString
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: transport is required"))
	}
	if builder.converter == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: converter is required"))
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	client := &Client{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorHandler:     builder.errorHandler,
		errorMapper:      builder.errorMapper,
		transport:        builder.transport,
		converter:        builder.converter,
		workerExecutor:   builder.workerExecutor,
		callbackExecutor: builder.callbackExecutor,
		configProvider:   builder.configProvider,
		optionsResolver:  builder.optionsResolver,
		requestID:        builder.requestID,
	}
	if client.workerExecutor == nil {
		pool := NewPoolExecutor(finalConfig.Workers)
		client.workerExecutor = pool
		client.owned = append(client.owned, pool)
	}
	if client.callbackExecutor == nil {
		serial := NewSerialExecutor(finalConfig.CallbackQueueSize)
		client.callbackExecutor = serial
		client.owned = append(client.owned, serial)
	}
	return client, nil
}

func Setup(cfg Config, opts ...Option) (*Client, error) {
	return NewClient(cfg, opts...)
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:           c.logger,
		LoggerProvider:   c.loggerProvider,
		MetricsRecorder:  c.metricsRecorder,
		ErrorHandler:     c.errorHandler,
		ErrorMapper:      c.errorMapper,
		Transport:        c.transport,
		Converter:        c.converter,
		WorkerExecutor:   c.workerExecutor,
		CallbackExecutor: c.callbackExecutor,
		ConfigProvider:   c.configProvider,
		OptionsResolver:  c.optionsResolver,
	}
}

// Close rejects new calls with ErrClientClosed and waits for in-flight work on
// the executors the client created itself. Executors supplied through
// WithExecutors are left to their owner. Calls must not race with Close.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var closeErr error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		for _, closer := range c.owned {
			if err := closer.Close(); err != nil {
				closeErr = errors.Join(closeErr, err)
			}
		}
	})
	return closeErr
}

// Call performs req on the calling goroutine. Failures are passed through the
// configured ErrorHandler and its result is returned as the error.
func Call[T any](ctx context.Context, c *Client, req Request) (T, *Response, error) {
	var zero T
	if c == nil {
		return zero, nil, fmt.Errorf("core: client is nil")
	}
	if c.closed.Load() {
		return zero, nil, mapBuildError(c.errorMapper, closedClientError())
	}
	envelope, err := obtain[T](ctx, c, req)
	if err != nil {
		return zero, err.Response, c.errorHandler.HandleError(err)
	}
	return envelope.Body, envelope.Response, nil
}

// CallAsync schedules req on the worker executor and delivers the outcome to
// callback on the callback executor. The returned error only reports misuse;
// call failures always arrive through the callback.
func CallAsync[T any](ctx context.Context, c *Client, req Request, callback Callback[T]) error {
	if c == nil {
		return fmt.Errorf("core: client is nil")
	}
	if c.closed.Load() {
		return mapBuildError(c.errorMapper, closedClientError())
	}
	runner, err := NewCallbackRunner[T](
		func() (ResultEnvelope[T], error) {
			envelope, callErr := obtain[T](ctx, c, req)
			if callErr != nil {
				return ResultEnvelope[T]{}, callErr
			}
			return envelope, nil
		},
		callback,
		c.callbackExecutor,
		c.errorHandler,
	)
	if err != nil {
		return mapBuildError(c.errorMapper, err)
	}
	c.workerExecutor.Execute(runner.Run)
	return nil
}

func closedClientError() error {
	return goerrors.Wrap(ErrClientClosed, goerrors.CategoryOperation, ErrClientClosed.Error()).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ClientErrorClientClosed)
}

// obtain performs exactly one attempt and normalizes every failure.
func obtain[T any](ctx context.Context, c *Client, req Request) (ResultEnvelope[T], *CallError) {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" && c.requestID != nil {
		requestID = c.requestID()
	}

	resolved, callErr := c.resolveRequest(req, requestID)
	if callErr != nil {
		c.observeCall(ctx, startedAt, resolved, requestID, nil, callErr)
		return ResultEnvelope[T]{}, callErr
	}

	res, err := c.transport.Execute(ctx, resolved)
	if err != nil {
		callErr = transportCallError(resolved.URL, err)
		c.observeCall(ctx, startedAt, resolved, requestID, callErr.Response, callErr)
		return ResultEnvelope[T]{}, callErr
	}
	if res == nil {
		callErr = NewUnexpectedError(resolved.URL, fmt.Errorf("core: transport returned no response"))
		c.observeCall(ctx, startedAt, resolved, requestID, nil, callErr)
		return ResultEnvelope[T]{}, callErr
	}
	if strings.TrimSpace(res.URL) == "" {
		res.URL = resolved.URL
	}
	if strings.TrimSpace(res.Reason) == "" {
		res.Reason = http.StatusText(res.StatusCode)
	}
	if !res.Successful() {
		callErr = NewHTTPError(res)
		c.observeCall(ctx, startedAt, resolved, requestID, res, callErr)
		return ResultEnvelope[T]{}, callErr
	}

	var body T
	switch target := any(&body).(type) {
	case *Empty:
	case *[]byte:
		*target = append([]byte(nil), res.Body...)
	default:
		if len(res.Body) > 0 {
			if err := c.converter.FromBody(res.Body, &body); err != nil {
				callErr = NewConversionError(res, err)
				c.observeCall(ctx, startedAt, resolved, requestID, res, callErr)
				return ResultEnvelope[T]{}, callErr
			}
		}
	}

	c.observeCall(ctx, startedAt, resolved, requestID, res, nil)
	return ResultEnvelope[T]{Body: body, Response: res}, nil
}

func transportCallError(url string, err error) *CallError {
	var callErr *CallError
	if errors.As(err, &callErr) && callErr != nil {
		return callErr
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryInternal, goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return NewUnexpectedError(url, err)
		}
	}
	return NewNetworkError(url, err)
}

func (c *Client) resolveRequest(req Request, requestID string) (TransportRequest, *CallError) {
	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	resolved := TransportRequest{
		Method:               method,
		URL:                  strings.TrimSpace(req.URL),
		Headers:              map[string]string{},
		Query:                map[string]string{},
		Timeout:              req.Timeout,
		MaxResponseBodyBytes: c.config.MaxResponseBodyBytes,
		Metadata:             req.Metadata,
	}
	if resolved.Timeout <= 0 {
		resolved.Timeout = c.config.Timeout
	}

	target, err := c.resolveURL(resolved.URL)
	if err != nil {
		return resolved, NewUnexpectedError(resolved.URL, err)
	}
	resolved.URL = target

	for key, value := range c.config.DefaultHeaders {
		setHeader(resolved.Headers, key, value)
	}
	for key, value := range req.Query {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			resolved.Query[trimmed] = value
		}
	}

	if req.Body != nil {
		switch payload := req.Body.(type) {
		case []byte:
			resolved.Body = append([]byte(nil), payload...)
		default:
			encoded, err := c.converter.ToBody(payload)
			if err != nil {
				return resolved, newCallError(ErrorKindConversion, resolved.URL, nil, err)
			}
			resolved.Body = encoded
			setHeader(resolved.Headers, "Content-Type", c.converter.ContentType())
		}
	}
	if contentType := c.converter.ContentType(); contentType != "" {
		setHeader(resolved.Headers, "Accept", contentType)
	}
	for key, value := range req.Headers {
		setHeader(resolved.Headers, key, value)
	}
	if requestID != "" {
		if _, exists := resolved.Headers[HeaderRequestID]; !exists {
			resolved.Headers[HeaderRequestID] = requestID
		}
	}
	return resolved, nil
}

func (c *Client) resolveURL(target string) (string, error) {
	if target != "" {
		parsed, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("core: invalid request url %q: %w", target, err)
		}
		if parsed.IsAbs() {
			return parsed.String(), nil
		}
	}
	base := strings.TrimSpace(c.config.BaseURL)
	if base == "" {
		return "", fmt.Errorf("core: request url %q is relative and base_url is not configured", target)
	}
	if target == "" {
		return base, nil
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/"), nil
}

func setHeader(headers map[string]string, key string, value string) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return
	}
	headers[http.CanonicalHeaderKey(trimmed)] = strings.TrimSpace(value)
}

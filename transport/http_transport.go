package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-restclient/core"
)

const defaultHTTPClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

// MetadataBodyTruncated is set on a response whose body was cut at the limit.
const MetadataBodyTruncated = "body_truncated"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport executes one request per call over net/http. It never
// interprets status codes; that is left to the client.
type HTTPTransport struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewHTTPTransport(client HTTPDoer) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPClientTimeout}
	}
	return &HTTPTransport{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (t *HTTPTransport) Execute(ctx context.Context, req core.TransportRequest) (*core.Response, error) {
	if t == nil || t.Client == nil {
		return nil, internalFailure("transport: http transport requires an http client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return nil, badRequestFailure(err, "transport: invalid request url",
			map[string]any{"url": strings.TrimSpace(req.URL)})
	}
	if parsedURL.String() == "" {
		return nil, badRequestFailure(nil, "transport: request url is required", nil)
	}

	if len(req.Query) > 0 {
		query := parsedURL.Query()
		for key, value := range req.Query {
			if strings.TrimSpace(key) == "" {
				continue
			}
			query.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
		parsedURL.RawQuery = query.Encode()
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), body)
	if err != nil {
		return nil, badRequestFailure(err, "transport: create http request",
			map[string]any{"method": method, "url": parsedURL.String()})
	}
	for key, value := range t.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now().UTC()
	httpRes, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, networkFailure(err, "transport: execute http request",
			map[string]any{"method": method, "url": parsedURL.String()})
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, t.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return nil, networkFailure(err, "transport: read response body",
			map[string]any{"status_code": httpRes.StatusCode})
	}

	metadata := map[string]any{
		"duration_ms": time.Since(startedAt).Milliseconds(),
		"protocol":    httpRes.Proto,
	}
	if int64(len(payload)) > maxBodyBytes {
		// Non-2xx responses are kept with the body cut at the limit.
		if httpRes.StatusCode >= http.StatusOK && httpRes.StatusCode < http.StatusMultipleChoices {
			return nil, networkFailure(nil,
				fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
				map[string]any{
					"status_code":      httpRes.StatusCode,
					"response_limit_b": maxBodyBytes,
				})
		}
		payload = payload[:maxBodyBytes]
		metadata[MetadataBodyTruncated] = true
		metadata["response_limit_b"] = maxBodyBytes
	}

	return &core.Response{
		URL:        parsedURL.String(),
		StatusCode: httpRes.StatusCode,
		Reason:     reasonPhrase(httpRes),
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Metadata:   metadata,
	}, nil
}

func badRequestFailure(cause error, message string, metadata map[string]any) error {
	return transportFailure(cause, goerrors.CategoryBadInput, http.StatusBadRequest, core.ClientErrorBadInput, message, metadata)
}

func networkFailure(cause error, message string, metadata map[string]any) error {
	return transportFailure(cause, goerrors.CategoryExternal, http.StatusBadGateway, core.ClientErrorNetworkFailure, message, metadata)
}

func internalFailure(message string) error {
	return transportFailure(nil, goerrors.CategoryInternal, http.StatusInternalServerError, core.ClientErrorInternal, message, nil)
}

func transportFailure(
	cause error,
	category goerrors.Category,
	code int,
	textCode string,
	message string,
	metadata map[string]any,
) error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	err = err.WithCode(code).WithTextCode(textCode)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// reasonPhrase extracts the server supplied phrase from a "400 Bad Request"
// style status line.
func reasonPhrase(res *http.Response) string {
	status := strings.TrimSpace(res.Status)
	code := strconv.Itoa(res.StatusCode)
	if strings.HasPrefix(status, code) {
		status = strings.TrimSpace(strings.TrimPrefix(status, code))
	}
	if status == "" {
		return http.StatusText(res.StatusCode)
	}
	return status
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, transportLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if transportLimit > 0 {
		return transportLimit
	}
	return defaultResponseBodyLimit
}

var _ core.Transport = (*HTTPTransport)(nil)

package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	metricCallTotal      = "restclient.call.total"
	metricCallDurationMS = "restclient.call.duration_ms"
)

func (c *Client) observeCall(
	ctx context.Context,
	startedAt time.Time,
	req TransportRequest,
	requestID string,
	res *Response,
	callErr *CallError,
) {
	if c == nil {
		return
	}
	elapsed := time.Since(startedAt)
	status := "success"
	if callErr != nil {
		status = "failure"
	}

	fields := map[string]any{
		"event_type":  "call",
		"client":      c.config.ClientName,
		"method":      req.Method,
		"url":         RedactURL(req.URL),
		"request_id":  requestID,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	}
	if len(req.Headers) > 0 {
		fields["headers"] = RedactHeaders(req.Headers)
	}
	if len(req.Metadata) > 0 {
		fields["metadata"] = RedactSensitiveMap(req.Metadata)
	}
	tags := map[string]string{
		"client": c.config.ClientName,
		"method": req.Method,
		"status": status,
	}
	if res != nil {
		fields["status_code"] = res.StatusCode
		tags["status_code"] = fmt.Sprint(res.StatusCode)
	}
	if callErr != nil {
		fields["error_kind"] = string(callErr.Kind)
		fields["error"] = callErr.Error()
		tags["error_kind"] = string(callErr.Kind)
		if envelope := callErr.Envelope(); envelope != nil {
			fields["error_category"] = envelope.Category.String()
			fields["error_text_code"] = envelope.TextCode
		}
	}

	c.recordCounter(ctx, metricCallTotal, 1, tags)
	c.recordHistogram(ctx, metricCallDurationMS, float64(elapsed.Milliseconds()), tags)

	if callErr != nil {
		c.logWithLevel(ctx, "error", "call failed", fields)
		return
	}
	c.logWithLevel(ctx, "debug", "call succeeded", fields)
}

func (c *Client) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (c *Client) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if c == nil || c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (c *Client) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if c == nil || c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorBadInput          = "RESTCLIENT_BAD_INPUT"
	ClientErrorNetworkFailure    = "RESTCLIENT_NETWORK_FAILURE"
	ClientErrorHTTPFailure       = "RESTCLIENT_HTTP_FAILURE"
	ClientErrorConversionFailure = "RESTCLIENT_CONVERSION_FAILURE"
	ClientErrorUnexpectedFailure = "RESTCLIENT_UNEXPECTED_FAILURE"
	ClientErrorInternal          = "RESTCLIENT_INTERNAL_ERROR"
	ClientErrorClientClosed      = "RESTCLIENT_CLIENT_CLOSED"
)

type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindHTTP       ErrorKind = "http"
	ErrorKindConversion ErrorKind = "conversion"
	ErrorKindUnexpected ErrorKind = "unexpected"
)

// CallError is the single failure currency of the client. Transport, status,
// decoding and internal failures all surface as exactly one CallError.
type CallError struct {
	Kind     ErrorKind
	URL      string
	Response *Response
	Cause    error

	message  string
	envelope *goerrors.Error
}

func NewNetworkError(url string, cause error) *CallError {
	return newCallError(ErrorKindNetwork, url, nil, cause)
}

func NewHTTPError(res *Response) *CallError {
	url := ""
	if res != nil {
		url = res.URL
	}
	return newCallError(ErrorKindHTTP, url, res, nil)
}

func NewConversionError(res *Response, cause error) *CallError {
	url := ""
	if res != nil {
		url = res.URL
	}
	return newCallError(ErrorKindConversion, url, res, cause)
}

func NewUnexpectedError(url string, cause error) *CallError {
	return newCallError(ErrorKindUnexpected, url, nil, cause)
}

// AsCallError returns err as a CallError, normalizing anything else into an
// unexpected failure.
func AsCallError(err error) *CallError {
	if err == nil {
		return nil
	}
	var callErr *CallError
	if errors.As(err, &callErr) && callErr != nil {
		return callErr
	}
	return NewUnexpectedError("", err)
}

func newCallError(kind ErrorKind, url string, res *Response, cause error) *CallError {
	callErr := &CallError{
		Kind:     kind,
		URL:      strings.TrimSpace(url),
		Response: res,
		Cause:    cause,
	}
	callErr.message = callErrorMessage(kind, res, cause)

	category, code, textCode := callErrorClassification(kind, res)
	var envelope *goerrors.Error
	if cause != nil {
		envelope = goerrors.Wrap(cause, category, callErr.message)
		envelope.Category = category
	} else {
		envelope = goerrors.New(callErr.message, category)
	}
	envelope = envelope.WithCode(code).WithTextCode(textCode)

	metadata := map[string]any{"kind": string(kind)}
	if callErr.URL != "" {
		metadata["url"] = callErr.URL
	}
	if res != nil {
		metadata["status_code"] = res.StatusCode
		if res.Reason != "" {
			metadata["reason"] = res.Reason
		}
	}
	envelope.WithMetadata(metadata)
	callErr.envelope = envelope
	return callErr
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *CallError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.envelope != nil {
		out = append(out, e.envelope)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Envelope exposes the go-errors representation (category, code, text code).
func (e *CallError) Envelope() *goerrors.Error {
	if e == nil {
		return nil
	}
	return e.envelope
}

func (e *CallError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

func (e *CallError) Reason() string {
	if e == nil || e.Response == nil {
		return ""
	}
	return e.Response.Reason
}

func callErrorMessage(kind ErrorKind, res *Response, cause error) string {
	switch kind {
	case ErrorKindHTTP:
		if res == nil {
			return "restclient: http failure"
		}
		reason := strings.TrimSpace(res.Reason)
		if reason == "" {
			reason = http.StatusText(res.StatusCode)
		}
		return strings.TrimSpace(fmt.Sprintf("restclient: http %d %s", res.StatusCode, reason))
	case ErrorKindNetwork:
		return withCause("restclient: network failure", cause)
	case ErrorKindConversion:
		return withCause("restclient: conversion failure", cause)
	default:
		return withCause("restclient: unexpected failure", cause)
	}
}

func withCause(message string, cause error) string {
	if cause == nil {
		return message
	}
	return message + ": " + cause.Error()
}

func callErrorClassification(kind ErrorKind, res *Response) (goerrors.Category, int, string) {
	switch kind {
	case ErrorKindNetwork:
		return goerrors.CategoryExternal, http.StatusBadGateway, ClientErrorNetworkFailure
	case ErrorKindHTTP:
		status := http.StatusBadGateway
		if res != nil && res.StatusCode > 0 {
			status = res.StatusCode
		}
		return statusCategory(status), status, ClientErrorHTTPFailure
	case ErrorKindConversion:
		return goerrors.CategoryOperation, http.StatusBadGateway, ClientErrorConversionFailure
	default:
		return goerrors.CategoryInternal, http.StatusInternalServerError, ClientErrorUnexpectedFailure
	}
}

func statusCategory(status int) goerrors.Category {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	case http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case http.StatusForbidden:
		return goerrors.CategoryAuthz
	case http.StatusNotFound:
		return goerrors.CategoryNotFound
	case http.StatusConflict:
		return goerrors.CategoryConflict
	case http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	default:
		return goerrors.CategoryExternal
	}
}

type ErrorMapper func(err error) *goerrors.Error

func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var callErr *CallError
	if errors.As(err, &callErr) && callErr.envelope != nil {
		return callErr.envelope
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if strings.Contains(msg, "required") || strings.Contains(msg, "invalid") {
		return ensureClientErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).WithTextCode(ClientErrorBadInput),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryExternal:
		return ClientErrorNetworkFailure
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

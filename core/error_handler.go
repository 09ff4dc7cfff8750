package core

// DefaultErrorHandler performs no translation: synchronous calls get the
// CallError back and callbacks receive it through Failure.
var DefaultErrorHandler ErrorHandler = defaultErrorHandler{}

type defaultErrorHandler struct{}

func (defaultErrorHandler) HandleError(err *CallError) error {
	if err == nil {
		return nil
	}
	return err
}

func (defaultErrorHandler) HandleErrorCallback(err *CallError, callback FailureCallback) {
	if callback == nil {
		return
	}
	callback.Failure(err)
}

// ErrorHandlerFuncs adapts plain functions into an ErrorHandler. Nil members
// fall back to DefaultErrorHandler.
type ErrorHandlerFuncs struct {
	OnError    func(err *CallError) error
	OnCallback func(err *CallError, callback FailureCallback)
}

func (h ErrorHandlerFuncs) HandleError(err *CallError) error {
	if h.OnError == nil {
		return DefaultErrorHandler.HandleError(err)
	}
	return h.OnError(err)
}

func (h ErrorHandlerFuncs) HandleErrorCallback(err *CallError, callback FailureCallback) {
	if h.OnCallback == nil {
		DefaultErrorHandler.HandleErrorCallback(err, callback)
		return
	}
	h.OnCallback(err, callback)
}

func resolveErrorHandler(handler ErrorHandler) ErrorHandler {
	if handler == nil {
		return DefaultErrorHandler
	}
	return handler
}

var (
	_ ErrorHandler = defaultErrorHandler{}
	_ ErrorHandler = ErrorHandlerFuncs{}
)

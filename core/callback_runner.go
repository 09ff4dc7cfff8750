package core

import "fmt"

// ObtainFunc performs a single call attempt. Failures must already be
// normalized into a CallError.
type ObtainFunc[T any] func() (ResultEnvelope[T], error)

// CallbackRunner is the unit of work scheduled on a worker executor. Run
// performs the call on the worker goroutine and hands the outcome to the
// callback executor; callback methods never run on the worker itself.
type CallbackRunner[T any] struct {
	obtain           ObtainFunc[T]
	callback         Callback[T]
	callbackExecutor Executor
	errorHandler     ErrorHandler
}

func NewCallbackRunner[T any](
	obtain ObtainFunc[T],
	callback Callback[T],
	callbackExecutor Executor,
	errorHandler ErrorHandler,
) (*CallbackRunner[T], error) {
	if obtain == nil {
		return nil, fmt.Errorf("core: callback runner requires an obtain func")
	}
	if callback == nil {
		return nil, fmt.Errorf("core: callback is required")
	}
	if callbackExecutor == nil {
		return nil, fmt.Errorf("core: callback executor is required")
	}
	return &CallbackRunner[T]{
		obtain:           obtain,
		callback:         callback,
		callbackExecutor: callbackExecutor,
		errorHandler:     resolveErrorHandler(errorHandler),
	}, nil
}

func (r *CallbackRunner[T]) Run() {
	envelope, err := r.obtain()
	if err != nil {
		callErr := AsCallError(err)
		r.callbackExecutor.Execute(func() {
			r.errorHandler.HandleErrorCallback(callErr, r.callback)
		})
		return
	}
	r.callbackExecutor.Execute(func() {
		r.callback.Success(envelope.Body, envelope.Response)
	})
}

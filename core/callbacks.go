package core

// CallbackFuncs adapts plain functions into a Callback. Nil members are
// ignored.
type CallbackFuncs[T any] struct {
	OnSuccess func(body T, res *Response)
	OnFailure func(err *CallError)
}

func (c CallbackFuncs[T]) Success(body T, res *Response) {
	if c.OnSuccess == nil {
		return
	}
	c.OnSuccess(body, res)
}

func (c CallbackFuncs[T]) Failure(err *CallError) {
	if c.OnFailure == nil {
		return
	}
	c.OnFailure(err)
}

package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-restclient/core"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	MessageTypeCallSucceeded    = "restclient.call.succeeded"
	MessageTypeCallFailed       = "restclient.call.failed"
	MessageTypeTranslateFailure = "restclient.call.translate_failure"
)

// CallSucceeded is dispatched when an asynchronous call produced a body.
type CallSucceeded struct {
	Call     string
	Body     any
	Response *core.Response
}

func (CallSucceeded) Type() string { return MessageTypeCallSucceeded }

func (m CallSucceeded) Validate() error {
	if strings.TrimSpace(m.Call) == "" {
		return fmt.Errorf("gocommand: call name is required")
	}
	return nil
}

// CallFailed is dispatched for failures that reached the generic Failure
// method of a callback.
type CallFailed struct {
	Call string
	Err  *core.CallError
}

func (CallFailed) Type() string { return MessageTypeCallFailed }

func (m CallFailed) Validate() error {
	if strings.TrimSpace(m.Call) == "" {
		return fmt.Errorf("gocommand: call name is required")
	}
	if m.Err == nil {
		return fmt.Errorf("gocommand: call error is required")
	}
	return nil
}

// TranslateFailure asks a query handler for the domain error matching a call
// failure.
type TranslateFailure struct {
	Err *core.CallError
}

func (TranslateFailure) Type() string { return MessageTypeTranslateFailure }

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// CommandCallback is a core.Callback that turns call outcomes into messages
// on the go-command dispatcher. Dispatch failures are logged because callbacks
// have no error return.
type CommandCallback[T any] struct {
	call   string
	ctx    context.Context
	logger glog.Logger
}

func NewCommandCallback[T any](ctx context.Context, call string, logger glog.Logger) (*CommandCallback[T], error) {
	call = strings.TrimSpace(call)
	if call == "" {
		return nil, fmt.Errorf("gocommand: call name is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &CommandCallback[T]{call: call, ctx: ctx, logger: glog.Ensure(logger)}, nil
}

func (c *CommandCallback[T]) Success(body T, res *core.Response) {
	msg := CallSucceeded{Call: c.call, Body: body, Response: res}
	if err := Dispatch(c.ctx, msg); err != nil {
		c.logger.Error("dispatch call succeeded failed", "call", c.call, "error", err)
	}
}

func (c *CommandCallback[T]) Failure(err *core.CallError) {
	msg := CallFailed{Call: c.call, Err: err}
	if dispatchErr := Dispatch(c.ctx, msg); dispatchErr != nil {
		c.logger.Error("dispatch call failed failed", "call", c.call, "error", dispatchErr)
	}
}

// QueryErrorHandler translates synchronous failures by querying the
// dispatcher with TranslateFailure. Without a handler, or when the handler
// returns nil, the original CallError is returned.
type QueryErrorHandler struct {
	ctx    context.Context
	logger glog.Logger
}

func NewQueryErrorHandler(ctx context.Context, logger glog.Logger) *QueryErrorHandler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &QueryErrorHandler{ctx: ctx, logger: glog.Ensure(logger)}
}

func (h *QueryErrorHandler) HandleError(err *core.CallError) error {
	if err == nil {
		return nil
	}
	translated, queryErr := Query[TranslateFailure, error](h.ctx, TranslateFailure{Err: err})
	if queryErr != nil {
		h.logger.Debug("translate failure query failed", "error", queryErr)
		return err
	}
	if translated == nil {
		return err
	}
	return translated
}

func (h *QueryErrorHandler) HandleErrorCallback(err *core.CallError, callback core.FailureCallback) {
	core.DefaultErrorHandler.HandleErrorCallback(err, callback)
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered call handlers into a go-job queue
// command registry.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// CallHandlers holds the subscriptions created by RegisterCallHandlers.
type CallHandlers struct {
	subscriptions []commanddispatcher.Subscription
}

func (h *CallHandlers) Unsubscribe() {
	if h == nil {
		return
	}
	for _, subscription := range h.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	h.subscriptions = nil
}

// RegisterCallHandlers subscribes and registers handlers for call outcome
// messages. Either handler may be nil.
func RegisterCallHandlers(
	adapter *RegistryAdapter,
	onSuccess command.CommandFunc[CallSucceeded],
	onFailure command.CommandFunc[CallFailed],
	runnerOpts ...runner.Option,
) (*CallHandlers, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if onSuccess == nil && onFailure == nil {
		return nil, fmt.Errorf("gocommand: at least one call handler is required")
	}
	handlers := &CallHandlers{}
	if onSuccess != nil {
		subscription, err := RegisterAndSubscribe[CallSucceeded](adapter, onSuccess, runnerOpts...)
		if err != nil {
			return nil, err
		}
		handlers.subscriptions = append(handlers.subscriptions, subscription)
	}
	if onFailure != nil {
		subscription, err := RegisterAndSubscribe[CallFailed](adapter, onFailure, runnerOpts...)
		if err != nil {
			handlers.Unsubscribe()
			return nil, err
		}
		handlers.subscriptions = append(handlers.subscriptions, subscription)
	}
	return handlers, nil
}

// SubscribeTranslator installs the query handler used by QueryErrorHandler.
func SubscribeTranslator(
	translate command.QueryFunc[TranslateFailure, error],
	runnerOpts ...runner.Option,
) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(translate, runnerOpts...)
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

var (
	_ core.Callback[string] = (*CommandCallback[string])(nil)
	_ core.ErrorHandler     = (*QueryErrorHandler)(nil)
	_ command.Message       = CallSucceeded{}
	_ command.Message       = CallFailed{}
	_ command.Message       = TranslateFailure{}
)

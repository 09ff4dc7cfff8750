package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-restclient/adapters/gologger"
	"github.com/goliatone/go-restclient/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const (
	JobIDCall = "restclient.call"

	ParamTaskID = "task_id"

	loggerName = "restclient.gojob"
)

// RetryPolicy bounds how often a delivery whose task is unknown to this
// executor is handed back to the queue before it is dead lettered.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// DefaultRetryPolicy requeues unknown tasks a few times so a sibling executor
// sharing the queue can claim them, then dead letters.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, MaxDelay: 5 * time.Second, DeadLetterOnMax: true}
}

type Option func(*QueueExecutor)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(e *QueueExecutor) {
		e.policy = policy
	}
}

func WithHook(hook worker.Hook) Option {
	return func(e *QueueExecutor) {
		e.hook = hook
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(e *QueueExecutor) {
		e.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(e *QueueExecutor) {
		e.loggerProvider = provider
	}
}

func WithTaskIDGenerator(generator func() string) Option {
	return func(e *QueueExecutor) {
		if generator != nil {
			e.newID = generator
		}
	}
}

// QueueExecutor is a core.Executor that publishes one go-job execution
// message per task and runs the task when Run dequeues that message. Tasks
// are closures and stay in process; the queue carries only their IDs.
type QueueExecutor struct {
	enqueuer queue.Enqueuer
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	hook     worker.Hook
	newID    func() string

	logger         glog.Logger
	loggerProvider glog.LoggerProvider
	jobLogger      job.Logger

	mu       sync.Mutex
	tasks    map[string]func()
	attempts map[string]int
}

func NewQueueExecutor(enqueuer queue.Enqueuer, dequeuer queue.Dequeuer, opts ...Option) (*QueueExecutor, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	executor := &QueueExecutor{
		enqueuer: enqueuer,
		dequeuer: dequeuer,
		policy:   DefaultRetryPolicy(),
		newID:    uuid.NewString,
		tasks:    map[string]func(){},
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(executor)
		}
	}

	provider, logger, _, jobLogger := gologger.ResolveForJob(loggerName, executor.loggerProvider, executor.logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = named
		}
	}
	executor.logger = glog.Ensure(logger)
	executor.loggerProvider = provider
	executor.jobLogger = jobLogger
	return executor, nil
}

// JobLogger exposes the executor logger through the go-job logger contract
// for workers that share the same queue.
func (e *QueueExecutor) JobLogger() job.Logger {
	if e == nil {
		return nil
	}
	return e.jobLogger
}

// Execute registers task and enqueues its message. When the queue rejects
// the message the task runs on its own goroutine so it is never lost.
func (e *QueueExecutor) Execute(task func()) {
	if e == nil || task == nil {
		return
	}
	id := e.newID()
	e.mu.Lock()
	e.tasks[id] = task
	e.mu.Unlock()

	if err := e.enqueuer.Enqueue(context.Background(), NewExecutionMessage(id)); err != nil {
		if claimed := e.take(id); claimed != nil {
			e.logger.Warn("enqueue failed, running task directly", "task_id", id, "error", err)
			go claimed()
		}
	}
}

// Pending reports how many enqueued tasks have not been processed yet.
func (e *QueueExecutor) Pending() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Run processes deliveries until ctx is done or the dequeuer fails.
func (e *QueueExecutor) Run(ctx context.Context) error {
	if e == nil {
		return fmt.Errorf("gojob: executor is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := e.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("gojob: dequeue failed: %w", err)
		}
		if delivery == nil {
			continue
		}
		if err := e.Process(ctx, delivery); err != nil {
			e.logger.Error("delivery settlement failed", "error", err)
		}
	}
}

// Process runs the task referenced by delivery and settles the delivery.
func (e *QueueExecutor) Process(ctx context.Context, delivery queue.Delivery) error {
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	id := TaskID(msg)
	startedAt := time.Now().UTC()
	event := worker.Event{
		Message:   msg,
		Delivery:  delivery,
		Attempt:   1,
		StartedAt: startedAt,
	}

	task := e.take(id)
	if task == nil {
		attempt := e.recordAttempt(id)
		event.Attempt = attempt
		event.Err = fmt.Errorf("gojob: no task registered for %q", id)
		event.Duration = time.Since(startedAt)
		nack := e.policy.NormalizeAttempt(queue.NackOptions{
			Delay:   e.policy.MaxDelay,
			Requeue: true,
			Reason:  event.Err.Error(),
		}, attempt)
		if nack.Requeue {
			event.Delay = nack.Delay
			e.onRetry(ctx, event)
		} else {
			e.forgetAttempts(id)
			e.onFailure(ctx, event)
		}
		e.logger.Warn("unknown task delivery", "task_id", id, "attempt", attempt, "dead_letter", nack.DeadLetter)
		return delivery.Nack(ctx, nack)
	}

	e.forgetAttempts(id)
	e.onStart(ctx, event)
	task()
	event.Duration = time.Since(startedAt)
	e.onSuccess(ctx, event)
	return delivery.Ack(ctx)
}

func (e *QueueExecutor) take(id string) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	task, ok := e.tasks[id]
	if !ok {
		return nil
	}
	delete(e.tasks, id)
	return task
}

func (e *QueueExecutor) recordAttempt(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts[id]++
	return e.attempts[id]
}

func (e *QueueExecutor) forgetAttempts(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.attempts, id)
}

func (e *QueueExecutor) onStart(ctx context.Context, event worker.Event) {
	if e.hook != nil {
		e.hook.OnStart(ctx, event)
	}
}

func (e *QueueExecutor) onSuccess(ctx context.Context, event worker.Event) {
	if e.hook != nil {
		e.hook.OnSuccess(ctx, event)
	}
}

func (e *QueueExecutor) onFailure(ctx context.Context, event worker.Event) {
	if e.hook != nil {
		e.hook.OnFailure(ctx, event)
	}
}

func (e *QueueExecutor) onRetry(ctx context.Context, event worker.Event) {
	if e.hook != nil {
		e.hook.OnRetry(ctx, event)
	}
}

// NewExecutionMessage builds the queue message for a task ID.
func NewExecutionMessage(taskID string) *job.ExecutionMessage {
	taskID = strings.TrimSpace(taskID)
	return &job.ExecutionMessage{
		JobID:          JobIDCall,
		ScriptPath:     JobIDCall,
		Parameters:     map[string]any{ParamTaskID: taskID},
		IdempotencyKey: taskID,
	}
}

// TaskID extracts the task ID from a message, falling back to the
// idempotency key.
func TaskID(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if value, ok := msg.Parameters[ParamTaskID].(string); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(msg.IdempotencyKey)
}

// MetricsHook reports queue executor lifecycle events to a core.MetricsRecorder.
type MetricsHook struct {
	recorder core.MetricsRecorder
}

func NewMetricsHook(recorder core.MetricsRecorder) *MetricsHook {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return &MetricsHook{recorder: recorder}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	h.count(ctx, "start", event)
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.count(ctx, "success", event)
	h.recorder.ObserveHistogram(ctx, "restclient.queue.task.duration_ms", float64(event.Duration.Milliseconds()), h.tags("success", event))
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	h.count(ctx, "failure", event)
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	h.count(ctx, "retry", event)
}

func (h *MetricsHook) count(ctx context.Context, status string, event worker.Event) {
	if h == nil || h.recorder == nil {
		return
	}
	h.recorder.IncCounter(ctx, "restclient.queue.task.total", 1, h.tags(status, event))
}

func (h *MetricsHook) tags(status string, event worker.Event) map[string]string {
	jobID := JobIDCall
	if event.Message != nil && strings.TrimSpace(event.Message.JobID) != "" {
		jobID = event.Message.JobID
	}
	return map[string]string{
		"job_id": jobID,
		"status": status,
	}
}

var (
	_ core.Executor = (*QueueExecutor)(nil)
	_ worker.Hook   = (*MetricsHook)(nil)
)

package core

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPoolWorkers       = 4
	defaultCallbackQueueSize = 64
)

// SynchronousExecutor runs every task on the submitting goroutine.
type SynchronousExecutor struct{}

func (SynchronousExecutor) Execute(task func()) {
	if task == nil {
		return
	}
	task()
}

// GoroutineExecutor starts a new goroutine per task.
type GoroutineExecutor struct{}

func (GoroutineExecutor) Execute(task func()) {
	if task == nil {
		return
	}
	go task()
}

// SerialExecutor runs tasks one at a time, in submission order, on a single
// goroutine it owns. Tasks submitted after Close are dropped.
type SerialExecutor struct {
	mu      sync.RWMutex
	closed  bool
	running atomic.Bool
	tasks   chan func()
	done    chan struct{}
}

func NewSerialExecutor(queueSize int) *SerialExecutor {
	if queueSize <= 0 {
		queueSize = defaultCallbackQueueSize
	}
	executor := &SerialExecutor{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
	go executor.loop()
	return executor
}

func (e *SerialExecutor) loop() {
	defer close(e.done)
	for task := range e.tasks {
		e.running.Store(true)
		task()
		e.running.Store(false)
	}
}

func (e *SerialExecutor) Execute(task func()) {
	if e == nil || task == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	e.tasks <- task
}

// Close stops accepting tasks, drains the queue and waits for the loop to
// exit. When a task is running, Close does not wait: the caller may be that
// task, and the loop still drains the queue before stopping. Use Done to wait
// for the loop from outside.
func (e *SerialExecutor) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()
	if e.running.Load() {
		return nil
	}
	<-e.done
	return nil
}

// Done is closed once the loop has run every accepted task and exited.
func (e *SerialExecutor) Done() <-chan struct{} {
	return e.done
}

// PoolExecutor runs tasks on at most workers goroutines. Execute never blocks
// the submitter: when the pool is saturated the task waits for a free slot in
// a parked goroutine. Tasks submitted after Close are dropped.
type PoolExecutor struct {
	mu      sync.RWMutex
	closed  bool
	group   errgroup.Group
	pending sync.WaitGroup
}

func NewPoolExecutor(workers int) *PoolExecutor {
	if workers <= 0 {
		workers = defaultPoolWorkers
	}
	executor := &PoolExecutor{}
	executor.group.SetLimit(workers)
	return executor
}

func (p *PoolExecutor) Execute(task func()) {
	if p == nil || task == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	run := func() error {
		task()
		return nil
	}
	if p.group.TryGo(run) {
		return
	}
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.group.Go(run)
	}()
}

// Wait blocks until every submitted task has finished. It must not race with
// Execute; use Close when submitters may still be running.
func (p *PoolExecutor) Wait() {
	if p == nil {
		return
	}
	p.pending.Wait()
	_ = p.group.Wait()
}

// Close stops accepting tasks and waits for the submitted ones.
func (p *PoolExecutor) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.Wait()
	return nil
}

var (
	_ Executor = SynchronousExecutor{}
	_ Executor = GoroutineExecutor{}
	_ Executor = (*SerialExecutor)(nil)
	_ Executor = (*PoolExecutor)(nil)
	_ Executor = ExecutorFunc(nil)
)

package vision

import (
	"context"
	"fmt"
	"sync"
)

// Callback receives the outcome of a Task. Exactly one of res and err is set.
type Callback func(res *Result, err error)

// Task is an analysis running in the background. It completes exactly once,
// either with a result or with an error.
type Task struct {
	done chan struct{}
	once sync.Once
	res  *Result
	err  error
}

// Start runs analyzer.Analyze on its own goroutine and returns immediately.
// onDone, if not nil, is called exactly once, before Done is closed.
func Start(ctx context.Context, analyzer Analyzer, req Request, onDone Callback) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		var res *Result
		var err error
		defer func() {
			if r := recover(); r != nil {
				res, err = nil, fmt.Errorf("analysis panicked: %v", r)
			}
			t.complete(res, err, onDone)
		}()
		res, err = analyzer.Analyze(ctx, req)
		if err == nil && res == nil {
			err = ErrEmptyResponse
		}
	}()
	return t
}

func (t *Task) complete(res *Result, err error, onDone Callback) {
	t.once.Do(func() {
		if err != nil {
			res = nil
		}
		t.res, t.err = res, err
		defer close(t.done)
		if onDone != nil {
			onDone(res, err)
		}
	})
}

// Done is closed when the task has completed.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx ends.
func (t *Task) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

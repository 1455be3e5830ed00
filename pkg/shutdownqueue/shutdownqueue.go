// Package shutdownqueue runs cleanup tasks in LIFO order when the process stops.
//
// A Queue is built with New and drained once with Shutdown:
//
//	q := shutdownqueue.New()
//	q.Add(func(ctx context.Context) error { return srv.Shutdown(ctx) })
//	defer q.Shutdown(ctx)
//
// Panics inside tasks are recovered and reported. Shutdown is idempotent
// and returns an aggregated error via errors.Join.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is a shutdown function. It should honor ctx and return an error
// if it can't finish (or ctx is canceled).
type Task func(ctx context.Context) error

// Named pairs a task with a label used in errors and logs.
type Named struct {
	Name string
	Task Task
}

type Queue struct {
	mu     sync.Mutex
	tasks  []Named
	closed bool
}

func New() *Queue {
	return &Queue{tasks: make([]Named, 0, 8)}
}

// Add registers an anonymous task.
func (q *Queue) Add(t Task) {
	q.AddNamed("", t)
}

// AddNamed registers a task to be run on Shutdown, in LIFO order.
// If t is nil or shutdown has already started, AddNamed does nothing.
func (q *Queue) AddNamed(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, Named{Name: name, Task: t})
}

// Len reports how many tasks are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Shutdown drains all registered tasks in LIFO order.
// Calls after the first one are no-ops.
//
// If ctx is done mid-drain, Shutdown stops early and returns the context
// error joined with any task errors so far.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.tasks) == 0 {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))

			return errors.Join(errs...)
		default:
		}

		err := run(ctx, tasks[i])
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func run(ctx context.Context, n Named) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task%s: %v", label(n.Name), r)
		}
	}()

	err = n.Task(ctx)
	if err != nil && n.Name != "" {
		return fmt.Errorf("%s: %w", n.Name, err)
	}

	return err
}

func label(name string) string {
	if name == "" {
		return ""
	}

	return " " + name
}

// Package task runs plugin work off the interactive path and adapts it into
// ordered log, progress and completion events.
package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
)

// ErrBusy is returned by Dispatch while another dispatch is in flight.
var ErrBusy = errors.New("task: a dispatch is already running")

// Notifier receives the events of a dispatch, in emission order, from the
// worker goroutine.
type Notifier interface {
	Log(line string)
	Progress(percent int)
	Error(title, message string)
}

// DispatchFatalError reports a unit of work that failed as a whole, either
// by returning an error or by panicking.
type DispatchFatalError struct {
	Err   error
	Stack []byte
}

func (e *DispatchFatalError) Error() string {
	return "task failed: " + e.Err.Error()
}

func (e *DispatchFatalError) Unwrap() error { return e.Err }

// Outcome is the terminal event of a dispatch. OK is false when the work
// failed; Value is then the zero value and Err holds the DispatchFatalError.
type Outcome[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Work is a unit of work run by the dispatcher.
type Work[T any] func(tc *Context) (T, error)

// Dispatcher runs at most one unit of work at a time.
type Dispatcher struct {
	notifier Notifier

	mu   sync.Mutex
	busy bool
	wg   sync.WaitGroup
}

// NewDispatcher creates a Dispatcher reporting to n.
func NewDispatcher(n Notifier) *Dispatcher {
	if n == nil {
		n = Discard
	}
	return &Dispatcher{notifier: n}
}

// Busy reports whether a dispatch is in flight.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Wait blocks until every dispatch started so far, including any started
// from a completion handler, has returned from its handler. It must not be
// called from done.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch runs work on a new goroutine. Its events reach the dispatcher's
// Notifier in order, and done is called exactly once, after every other
// event, whether work succeeds, fails or panics. The dispatcher is idle by
// the time done runs, so done may dispatch again. ctx is handed to work
// unchanged: the dispatcher never cancels.
func Dispatch[T any](ctx context.Context, d *Dispatcher, work Work[T], done func(Outcome[T])) error {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	d.busy = true
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		out := run(ctx, d.notifier, work)

		// done may start the next dispatch.
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
		complete(done, out)
	}()
	return nil
}

// Run dispatches work and blocks until it completes.
func Run[T any](ctx context.Context, d *Dispatcher, work Work[T]) (Outcome[T], error) {
	var out Outcome[T]
	if err := Dispatch(ctx, d, work, func(o Outcome[T]) { out = o }); err != nil {
		return out, err
	}
	d.Wait()
	return out, nil
}

func run[T any](ctx context.Context, n Notifier, work Work[T]) (out Outcome[T]) {
	tc := &Context{ctx: ctx, notifier: n}

	defer func() {
		if v := recover(); v != nil {
			fe := &DispatchFatalError{Err: fmt.Errorf("panic: %v", v), Stack: debug.Stack()}
			reportFatal(n, fe)
			out = Outcome[T]{Err: fe}
		}
	}()

	v, err := work(tc)
	if err != nil {
		fe := &DispatchFatalError{Err: err}
		reportFatal(n, fe)
		return Outcome[T]{Err: fe}
	}
	return Outcome[T]{Value: v, OK: true}
}

func reportFatal(n Notifier, err *DispatchFatalError) {
	n.Log("--- A critical error occurred in a background task ---")
	n.Log(err.Err.Error())
	if len(err.Stack) > 0 {
		for _, line := range strings.Split(strings.TrimRight(string(err.Stack), "\n"), "\n") {
			n.Log(line)
		}
	}
}

func complete[T any](done func(Outcome[T]), out Outcome[T]) {
	if done == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			log.Printf("task: completion handler panicked: %v\n%s", v, debug.Stack())
		}
	}()
	done(out)
}

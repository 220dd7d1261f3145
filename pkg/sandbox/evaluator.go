package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"
)

// errTimeout is the interrupt value used when an evaluation exceeds its budget.
var errTimeout = errors.New("evaluation timed out")

// Result is the outcome of one evaluation: either a populated root value or a
// captured error. Exactly one of Root and Err is set.
type Result struct {
	// Root is the snippet's receiver after execution.
	Root goja.Value

	// Realm is the environment Root lives in. It is needed to classify and
	// traverse Root and is nil when Err is set.
	Realm *Realm

	// Err describes why the snippet failed.
	Err *EvalError
}

// Failed reports whether the evaluation produced an error.
func (r *Result) Failed() bool { return r.Err != nil }

// Failure wraps err into a failed Result.
func Failure(err *EvalError) *Result { return &Result{Err: err} }

// Evaluator runs snippets. The zero value is not usable; use [New].
// An Evaluator holds only configuration and may be shared between goroutines;
// each evaluation gets its own realm.
type Evaluator struct {
	timeout      time.Duration
	maxCallStack int
	logger       *log.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout interrupts evaluations that run longer than d.
// A zero duration disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.timeout = d }
}

// WithMaxCallStackSize bounds recursion depth inside the snippet.
func WithMaxCallStackSize(n int) Option {
	return func(e *Evaluator) { e.maxCallStack = n }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs code with a fresh empty object as `this` and returns the
// populated receiver, or the error the code raised.
//
// Cancelling ctx interrupts a running snippet; the interruption is reported
// as an [EvalError] named "InterruptedError".
func (e *Evaluator) Evaluate(ctx context.Context, code string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("evaluation panicked", "panic", r)
			res = Failure(&EvalError{Name: "InternalError", Message: fmt.Sprint(r)})
		}
	}()

	realm, err := NewRealm()
	if err != nil {
		return Failure(&EvalError{Name: "InternalError", Message: err.Error()})
	}
	rt := realm.Runtime()
	if e.maxCallStack > 0 {
		rt.SetMaxCallStackSize(e.maxCallStack)
	}
	realm.limit = e.timeout
	e.logger.Debug("created realm", "builtins", realm.BuiltinCount())

	stop := realm.arm(ctx, e.timeout)
	defer stop()

	fn, err := rt.New(rt.Get("Function"), rt.ToValue(code))
	if err != nil {
		return Failure(toEvalError(err))
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return Failure(&EvalError{Name: "InternalError", Message: "compiled snippet is not callable"})
	}

	root := rt.NewObject()
	if _, err := call(root); err != nil {
		return Failure(toEvalError(err))
	}
	return &Result{Root: root, Realm: realm}
}

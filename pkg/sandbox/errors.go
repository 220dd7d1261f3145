package sandbox

import (
	"errors"

	"github.com/dop251/goja"
)

// EvalError is an error raised while evaluating a snippet.
type EvalError struct {
	Name    string `json:"name"` // error kind, e.g. "ReferenceError"
	Message string `json:"message"`
}

// Error returns "Name: Message", or just Name when there is no message.
func (e *EvalError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// toEvalError converts an error returned by goja into an EvalError.
func toEvalError(err error) *EvalError {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			if errors.Is(cause, errTimeout) {
				return &EvalError{Name: "TimeoutError", Message: cause.Error()}
			}
			return &EvalError{Name: "InterruptedError", Message: cause.Error()}
		}
		return &EvalError{Name: "InterruptedError", Message: interrupted.Error()}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return fromThrown(ex.Value())
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return &EvalError{Name: "SyntaxError", Message: syntax.Error()}
	}

	return &EvalError{Name: "Error", Message: err.Error()}
}

// fromThrown describes a thrown JavaScript value. Error-like objects keep their
// name and message; anything else is reported as an uncaught value.
func fromThrown(v goja.Value) (e *EvalError) {
	defer func() {
		if recover() != nil {
			e = &EvalError{Name: "Error", Message: "uncaught exception"}
		}
	}()

	if v == nil {
		return &EvalError{Name: "Error", Message: "uncaught exception"}
	}
	if o, ok := v.(*goja.Object); ok {
		if name := stringProp(o, "name"); name != "" {
			return &EvalError{Name: name, Message: stringProp(o, "message")}
		}
	}
	return &EvalError{Name: "Error", Message: "uncaught " + v.String()}
}

func stringProp(o *goja.Object, name string) string {
	v := o.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

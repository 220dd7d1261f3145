// Package sandbox evaluates user-supplied JavaScript snippets in an isolated,
// in-process JavaScript realm.
//
// # Overview
//
// Every call to [Evaluator.Evaluate] creates a brand new realm (a
// [github.com/dop251/goja] runtime), records the platform objects that exist
// before any user code runs, and then executes the snippet as the body of a
// function whose receiver (`this`) is a fresh, empty object:
//
//	res := sandbox.New().Evaluate(ctx, "this.a = [];")
//	if res.Err != nil {
//	    fmt.Println(res.Err) // e.g. "ReferenceError: asdf is not defined"
//	}
//	root := res.Root // the receiver, populated by the snippet
//
// Statements such as `this.a = []` are therefore the observable result of an
// evaluation. Local `var` declarations stay local to the snippet.
//
// # Results
//
// [Result] is a tagged union: either Root and Realm are set, or Err is. Thrown
// values, syntax errors, interrupts and engine panics are all converted into an
// [EvalError]; Evaluate never returns a Go error and never panics.
//
// # Builtin Registry
//
// The [Realm] keeps a registry of every object reachable from the global object
// at creation time, keyed by identity and named by the path it was found under
// (for example "Array.prototype" or "Math"). Graph builders use it to decide
// which entities are provided by the platform rather than by user code.
//
// # Property Access
//
// [Realm.Describe] reads property descriptors through a copy of
// Object.getOwnPropertyDescriptor captured before user code runs, so user
// getters never execute during traversal and tampering with the global Object
// constructor has no effect.
package sandbox

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// globalPath names the global object in the builtin registry.
const globalPath = "globalThis"

var errNoDescriptor = errors.New("Object.getOwnPropertyDescriptor is not callable")

// Property is an own property read through its descriptor.
// For data properties Value is set; for accessor properties Getter and/or
// Setter are set and Value is nil.
type Property struct {
	Value      goja.Value
	Getter     goja.Value
	Setter     goja.Value
	Enumerable bool
}

// IsAccessor reports whether the property is a getter/setter pair.
func (p Property) IsAccessor() bool { return p.Getter != nil || p.Setter != nil }

// Realm is one JavaScript global environment plus the registry of platform
// objects it was created with.
//
// A Realm is not safe for concurrent use; it belongs to a single
// evaluate-and-build cycle.
type Realm struct {
	rt       *goja.Runtime
	describe goja.Callable
	builtins map[*goja.Object]string

	// limit bounds how long a Guard lets the realm run JavaScript.
	limit   time.Duration
	expired atomic.Bool
}

// NewRealm creates a fresh runtime and snapshots its builtin objects.
func NewRealm() (*Realm, error) {
	rt := goja.New()

	ctor, ok := rt.Get("Object").(*goja.Object)
	if !ok {
		return nil, errNoDescriptor
	}
	describe, ok := goja.AssertFunction(ctor.Get("getOwnPropertyDescriptor"))
	if !ok {
		return nil, errNoDescriptor
	}

	r := &Realm{
		rt:       rt,
		describe: describe,
		builtins: make(map[*goja.Object]string),
	}
	r.snapshot()
	return r, nil
}

// Runtime returns the underlying goja runtime.
func (r *Realm) Runtime() *goja.Runtime { return r.rt }

// BuiltinCount returns the number of objects in the builtin registry.
func (r *Realm) BuiltinCount() int { return len(r.builtins) }

// IsBuiltin reports whether o existed before user code ran.
func (r *Realm) IsBuiltin(o *goja.Object) bool {
	_, ok := r.builtins[o]
	return ok
}

// BuiltinName returns the registry path of o, such as "Array.prototype".
func (r *Realm) BuiltinName(o *goja.Object) (string, bool) {
	name, ok := r.builtins[o]
	return name, ok
}

// Describe returns the own property named name of o without invoking getters.
// It reports false when o has no such property or the descriptor cannot be
// read (for example because a proxy trap throws).
func (r *Realm) Describe(o *goja.Object, name string) (p Property, ok bool) {
	defer func() {
		if recover() != nil {
			p, ok = Property{}, false
		}
	}()

	v, err := r.describe(goja.Undefined(), o, r.rt.ToValue(name))
	if err != nil {
		return Property{}, false
	}
	d, isObj := v.(*goja.Object)
	if !isObj {
		return Property{}, false
	}

	fields := ownFields(d)
	p.Getter = present(fields["get"])
	p.Setter = present(fields["set"])
	if !p.IsAccessor() {
		p.Value = fields["value"]
		if p.Value == nil {
			p.Value = goja.Undefined()
		}
	}
	if e := fields["enumerable"]; e != nil {
		p.Enumerable = e.ToBoolean()
	}
	return p, true
}

// ownFields reads a descriptor's own fields only. Fields inherited from a
// patched Object.prototype, such as a user-defined "get", are ignored.
func ownFields(d *goja.Object) map[string]goja.Value {
	names := d.GetOwnPropertyNames()
	fields := make(map[string]goja.Value, len(names))
	for _, name := range names {
		fields[name] = d.Get(name)
	}
	return fields
}

// Guard interrupts any JavaScript the realm runs once ctx is done or the
// evaluator's timeout elapses again. Reading a realm can run user code
// through proxy traps, so traversals hold a guard. An interrupted read
// panics inside goja and Expired reports true until release is called.
func (r *Realm) Guard(ctx context.Context) (release func()) {
	return r.arm(ctx, r.limit)
}

// Expired reports whether the current guard has interrupted the realm.
func (r *Realm) Expired() bool { return r.expired.Load() }

// arm interrupts the runtime when ctx is done or timeout elapses. The
// returned function stops watching and clears any interrupt that raced with
// completion, so the realm stays usable afterwards.
func (r *Realm) arm(ctx context.Context, timeout time.Duration) func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	var elapsed <-chan time.Time
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		elapsed = timer.C
	}

	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			r.expired.Store(true)
			r.rt.Interrupt(ctx.Err())
		case <-elapsed:
			r.expired.Store(true)
			r.rt.Interrupt(errTimeout)
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-exited
		if timer != nil {
			timer.Stop()
		}
		r.rt.ClearInterrupt()
		r.expired.Store(false)
	}
}

// OwnKeys returns the own enumerable string keys of o in property order.
func (r *Realm) OwnKeys(o *goja.Object) (keys []string) {
	defer func() {
		if recover() != nil {
			keys = nil
		}
	}()
	return o.Keys()
}

// OwnNames returns all own string keys of o, enumerable or not.
func (r *Realm) OwnNames(o *goja.Object) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	return o.GetOwnPropertyNames()
}

// snapshot walks the global object breadth-first and records every object it
// can reach through data and accessor properties. Prototypes not reachable by
// name are visited after the named objects so that they do not claim a path
// like "Object.prototype" first.
func (r *Realm) snapshot() {
	type item struct {
		obj  *goja.Object
		path string
	}

	global := r.rt.GlobalObject()
	r.builtins[global] = globalPath
	queue := []item{{global, globalPath}}
	var deferred []item

	for len(queue) > 0 || len(deferred) > 0 {
		if len(queue) == 0 {
			for _, d := range deferred {
				if _, seen := r.builtins[d.obj]; seen {
					continue
				}
				r.builtins[d.obj] = d.path
				queue = append(queue, d)
			}
			deferred = nil
			continue
		}

		it := queue[0]
		queue = queue[1:]

		for _, name := range r.OwnNames(it.obj) {
			p, ok := r.Describe(it.obj, name)
			if !ok {
				continue
			}
			for _, v := range []goja.Value{p.Value, p.Getter, p.Setter} {
				o, isObj := v.(*goja.Object)
				if !isObj {
					continue
				}
				if _, seen := r.builtins[o]; seen {
					continue
				}
				path := joinPath(it.path, name)
				r.builtins[o] = path
				queue = append(queue, item{o, path})
			}
		}

		if proto := it.obj.Prototype(); proto != nil {
			if _, seen := r.builtins[proto]; !seen {
				deferred = append(deferred, item{proto, fmt.Sprintf("Object.getPrototypeOf(%s)", it.path)})
			}
		}
	}
}

func joinPath(parent, name string) string {
	if parent == globalPath {
		return name
	}
	return parent + "." + name
}

func present(v goja.Value) goja.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v
}

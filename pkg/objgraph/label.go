package objgraph

import (
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/dop251/goja"

	"github.com/matzehuels/objgraph/pkg/sandbox"
)

// maxStringRunes bounds the rendered length of string primitives.
const maxStringRunes = 40

// primitiveLabel renders a non-reference value the way JavaScript source
// would spell it.
func primitiveLabel(v goja.Value) (label string) {
	defer func() {
		if recover() != nil {
			label = "?"
		}
	}()

	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch x := v.Export().(type) {
	case string:
		return strconv.Quote(truncate(x, maxStringRunes))
	case *big.Int:
		return x.String() + "n"
	}
	return v.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// functionName returns the function's own name, or "anonymous".
func functionName(realm *sandbox.Realm, fn *goja.Object) string {
	if p, ok := realm.Describe(fn, "name"); ok && !p.IsAccessor() {
		if name, isStr := p.Value.Export().(string); isStr && name != "" {
			return name
		}
	}
	return "anonymous"
}

// objectLabel names a user object after its constructor. Objects that own a
// constructor are prototype objects and are labelled "F.prototype".
func objectLabel(realm *sandbox.Realm, o *goja.Object) string {
	if fn, ok := constructorOf(realm, o); ok {
		return functionName(realm, fn) + ".prototype"
	}
	if proto := o.Prototype(); proto != nil {
		if fn, ok := constructorOf(realm, proto); ok {
			return functionName(realm, fn)
		}
	}
	return "Object"
}

func constructorOf(realm *sandbox.Realm, o *goja.Object) (*goja.Object, bool) {
	p, ok := realm.Describe(o, "constructor")
	if !ok || p.IsAccessor() {
		return nil, false
	}
	fn, isObj := p.Value.(*goja.Object)
	if !isObj {
		return nil, false
	}
	if _, callable := goja.AssertFunction(fn); !callable {
		return nil, false
	}
	return fn, true
}

// arrayLabel renders an array with its length, e.g. "Array[3]".
func arrayLabel(realm *sandbox.Realm, o *goja.Object) string {
	if p, ok := realm.Describe(o, "length"); ok && !p.IsAccessor() {
		return "Array[" + p.Value.String() + "]"
	}
	return "Array"
}

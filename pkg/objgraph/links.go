package objgraph

import (
	"github.com/dop251/goja"

	"github.com/matzehuels/objgraph/pkg/sandbox"
)

// Edge labels for synthetic links.
const (
	LabelPrototype   = "prototype"
	LabelConstructor = "constructor"
	LabelProtoLink   = "[[Prototype]]"
)

// Entity is an object being expanded during a build.
type Entity struct {
	Object *goja.Object
	Kind   Kind
	Realm  *sandbox.Realm
}

// Ref is one reference an entity exposes.
type Ref struct {
	Label string
	Value goja.Value

	// Synthetic marks references that are not ordinary own enumerable
	// properties, such as prototype links. Synthetic references to platform
	// objects are hidden unless builtins are shown.
	Synthetic bool
}

// LinkFunc enumerates references of one category for an entity.
// A LinkFunc may panic; the builder then treats the entity as having no
// references at all.
type LinkFunc func(e Entity) []Ref

// DefaultLinks returns the link set used by [Build]: own properties, function
// prototypes, constructors and the prototype chain, in that order.
func DefaultLinks() []LinkFunc {
	return []LinkFunc{OwnProperties, FunctionPrototype, Constructor, PrototypeChain}
}

// OwnProperties yields the own enumerable string-keyed properties of an
// entity. Accessor properties yield their getter and setter functions, labelled
// "get name" and "set name", so that no user code runs.
func OwnProperties(e Entity) []Ref {
	var refs []Ref
	for _, name := range e.Realm.OwnKeys(e.Object) {
		p, ok := e.Realm.Describe(e.Object, name)
		if !ok {
			continue
		}
		if !p.IsAccessor() {
			refs = append(refs, Ref{Label: name, Value: p.Value})
			continue
		}
		if p.Getter != nil {
			refs = append(refs, Ref{Label: "get " + name, Value: p.Getter})
		}
		if p.Setter != nil {
			refs = append(refs, Ref{Label: "set " + name, Value: p.Setter})
		}
	}
	return refs
}

// FunctionPrototype yields the non-enumerable prototype object of a function.
func FunctionPrototype(e Entity) []Ref {
	if e.Kind != KindFunction {
		return nil
	}
	return hiddenObjectProp(e, "prototype", LabelPrototype)
}

// Constructor yields the non-enumerable constructor of a non-function object,
// which links prototype objects back to the function that owns them.
func Constructor(e Entity) []Ref {
	if e.Kind == KindFunction {
		return nil
	}
	refs := hiddenObjectProp(e, "constructor", LabelConstructor)
	if len(refs) == 1 {
		if _, callable := goja.AssertFunction(refs[0].Value); !callable {
			return nil
		}
	}
	return refs
}

// PrototypeChain yields the entity's [[Prototype]], if any.
func PrototypeChain(e Entity) []Ref {
	proto := e.Object.Prototype()
	if proto == nil {
		return nil
	}
	return []Ref{{Label: LabelProtoLink, Value: proto, Synthetic: true}}
}

// hiddenObjectProp returns a synthetic reference for a non-enumerable data
// property holding an object. Enumerable ones are already covered by
// OwnProperties.
func hiddenObjectProp(e Entity, name, label string) []Ref {
	p, ok := e.Realm.Describe(e.Object, name)
	if !ok || p.Enumerable || p.IsAccessor() {
		return nil
	}
	if _, isObj := p.Value.(*goja.Object); !isObj {
		return nil
	}
	return []Ref{{Label: label, Value: p.Value, Synthetic: true}}
}

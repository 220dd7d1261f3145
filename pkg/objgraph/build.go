package objgraph

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dop251/goja"

	"github.com/matzehuels/objgraph/pkg/sandbox"
)

// Options controls which entities a build includes.
type Options struct {
	// ShowBuiltins includes platform objects such as Object.prototype and
	// synthetic links that lead to them.
	ShowBuiltins bool `json:"show_builtins"`

	// ShowAllFunctions expands functions like any other object. When false,
	// functions are leaves.
	ShowAllFunctions bool `json:"show_all_functions"`

	// MaxNodes stops the build from adding nodes once the graph holds this
	// many. Zero means no limit.
	MaxNodes int `json:"max_nodes,omitempty"`
}

// Builder turns evaluation results into graphs. A Builder holds only
// configuration and may be reused and shared.
type Builder struct {
	opts   Options
	links  []LinkFunc
	logger *log.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLinks replaces the default link set. Links are consulted in order for
// every expanded entity.
func WithLinks(links ...LinkFunc) BuilderOption {
	return func(b *Builder) { b.links = links }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a Builder with the given filtering options.
func NewBuilder(opts Options, bopts ...BuilderOption) *Builder {
	b := &Builder{
		opts:   opts,
		links:  DefaultLinks(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range bopts {
		o(b)
	}
	return b
}

// Options returns the builder's filtering options.
func (b *Builder) Options() Options { return b.opts }

// Build walks the object graph of a successful evaluation, or returns the
// single-node error graph of a failed one.
func Build(res *sandbox.Result, opts Options) *Graph {
	return NewBuilder(opts).Build(res)
}

// BuildError returns a graph holding one error node labelled with the error
// kind and message.
func BuildError(err *sandbox.EvalError) *Graph {
	g := New()
	if err == nil {
		g.AddNode(KindError, "Error")
		return g
	}
	g.AddNode(KindError, err.Error())
	return g
}

// Build is BuildContext without cancellation. The evaluator's timeout still
// bounds any JavaScript the walk runs.
func (b *Builder) Build(res *sandbox.Result) *Graph {
	return b.BuildContext(context.Background(), res)
}

// BuildContext walks res breadth-first from its root. It never panics:
// entities whose references cannot be read become leaves. When ctx is done
// or the realm's time limit elapses while a proxy trap runs, the walk stops
// and the graph is marked truncated.
func (b *Builder) BuildContext(ctx context.Context, res *sandbox.Result) *Graph {
	switch {
	case res == nil:
		return BuildError(&sandbox.EvalError{Name: "InternalError", Message: "no evaluation result"})
	case res.Failed():
		return BuildError(res.Err)
	case res.Realm == nil:
		return BuildError(&sandbox.EvalError{Name: "InternalError", Message: "evaluation result has no realm"})
	}

	release := res.Realm.Guard(ctx)
	defer release()

	w := &walker{
		b:     b,
		realm: res.Realm,
		g:     New(),
		ids:   make(map[*goja.Object]int),
	}

	root, ok := res.Root.(*goja.Object)
	if !ok {
		w.g.AddNode(KindPrimitive, primitiveLabel(res.Root))
		return w.g
	}

	w.visit(root)
	for len(w.queue) > 0 && !w.realm.Expired() {
		e := w.queue[0]
		w.queue = w.queue[1:]
		for _, ref := range w.references(e.Entity) {
			w.follow(e.id, ref)
		}
	}
	if w.realm.Expired() {
		b.logger.Debug("build interrupted", "pending", len(w.queue))
		w.g.truncated = true
	}

	b.logger.Debug("built graph",
		"nodes", w.g.NodeCount(),
		"edges", w.g.EdgeCount(),
		"truncated", w.g.truncated)
	return w.g
}

// walker is the state of one build. The identity map lives here so that ids
// never leak between builds.
type walker struct {
	b     *Builder
	realm *sandbox.Realm
	g     *Graph
	ids   map[*goja.Object]int
	queue []pending
}

type pending struct {
	Entity
	id int
}

// visit adds a node for o and schedules it for expansion.
func (w *walker) visit(o *goja.Object) int {
	kind := w.classify(o)
	id := w.g.AddNode(kind, w.label(o, kind))
	w.ids[o] = id
	if kind != KindFunction || w.b.opts.ShowAllFunctions {
		w.queue = append(w.queue, pending{
			Entity: Entity{Object: o, Kind: kind, Realm: w.realm},
			id:     id,
		})
	}
	return id
}

// follow adds the edge for one reference, creating the target node if needed.
func (w *walker) follow(from int, ref Ref) {
	o, isObj := ref.Value.(*goja.Object)
	if !isObj {
		if w.full() {
			return
		}
		to := w.g.AddNode(KindPrimitive, primitiveLabel(ref.Value))
		w.g.AddEdge(from, to, ref.Label)
		return
	}

	if w.hidden(o, ref) {
		return
	}
	if to, seen := w.ids[o]; seen {
		w.g.AddEdge(from, to, ref.Label)
		return
	}
	if w.full() {
		return
	}
	w.g.AddEdge(from, w.visit(o), ref.Label)
}

// hidden applies the builtin filter. Synthetic links to any platform object
// are hidden, as are platform objects that are not functions.
func (w *walker) hidden(o *goja.Object, ref Ref) bool {
	if w.b.opts.ShowBuiltins || !w.realm.IsBuiltin(o) {
		return false
	}
	if ref.Synthetic {
		return true
	}
	return w.classify(o) == KindBuiltin
}

func (w *walker) full() bool {
	limit := w.b.opts.MaxNodes
	if limit > 0 && w.g.NodeCount() >= limit {
		w.g.truncated = true
		return true
	}
	return false
}

// references collects the entity's references from every link. Any panic
// while reading them discards all of the entity's references.
func (w *walker) references(e Entity) (refs []Ref) {
	defer func() {
		if r := recover(); r != nil {
			w.b.logger.Debug("skipping references", "kind", e.Kind, "panic", r)
			refs = nil
		}
	}()
	for _, link := range w.b.links {
		refs = append(refs, link(e)...)
	}
	return refs
}

// classify checks builtin before array: Array.prototype is array-exotic but
// is a platform object, so it must classify as builtin.
func (w *walker) classify(o *goja.Object) (kind Kind) {
	defer func() {
		if recover() != nil {
			kind = KindPlainObject
		}
	}()

	if _, ok := goja.AssertFunction(o); ok {
		return KindFunction
	}
	if w.realm.IsBuiltin(o) {
		return KindBuiltin
	}
	if o.ClassName() == "Array" {
		return KindArray
	}
	return KindPlainObject
}

func (w *walker) label(o *goja.Object, kind Kind) (label string) {
	defer func() {
		if recover() != nil {
			label = kind.String()
		}
	}()

	switch kind {
	case KindFunction:
		return functionName(w.realm, o) + "()"
	case KindArray:
		return arrayLabel(w.realm, o)
	case KindBuiltin:
		name, _ := w.realm.BuiltinName(o)
		return name
	}
	return objectLabel(w.realm, o)
}

// Package objgraph builds a graph of the objects reachable from the receiver
// of an evaluated snippet.
//
// # Overview
//
// A [Graph] has one node per distinct entity and one edge per named reference.
// The receiver is always node 1. Objects are identified by reference, so an
// object reachable along several paths appears once, and reference cycles
// appear as cycles. Primitive values have no identity and get a fresh node
// every time they are referenced.
//
//	res := sandbox.New().Evaluate(ctx, "this.a = []")
//	g := objgraph.Build(res, objgraph.Options{})
//	// g: 1 "Object" --a--> 2 "Array[0]"
//
// # Links
//
// The references followed for each object are produced by a list of
// [LinkFunc]s. [DefaultLinks] follows own enumerable properties, the prototype
// of functions, the constructor of prototype objects and the [[Prototype]]
// chain. Property values are read through descriptors, so user getters never
// run during a build.
//
// # Filtering
//
// [Options.ShowBuiltins] controls whether platform objects like
// Object.prototype appear; [Options.ShowAllFunctions] controls whether
// functions are expanded. The root is never filtered.
//
// # Analysis
//
// [Graph.Validate] checks structural invariants and [Graph.Cycles] reports
// reference cycles, both using gonum's graph algorithms.
package objgraph

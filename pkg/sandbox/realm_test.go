package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/dop251/goja"
)

func TestRealmBuiltinRegistry(t *testing.T) {
	realm, err := NewRealm()
	if err != nil {
		t.Fatalf("NewRealm() error: %v", err)
	}
	rt := realm.Runtime()

	tests := []struct {
		expr string
		want string
	}{
		{"Object.prototype", "Object.prototype"},
		{"Array.prototype", "Array.prototype"},
		{"Array", "Array"},
		{"Math", "Math"},
		{"JSON", "JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := rt.RunString(tt.expr)
			if err != nil {
				t.Fatalf("RunString(%q) error: %v", tt.expr, err)
			}
			name, ok := realm.BuiltinName(v.(*goja.Object))
			if !ok {
				t.Fatalf("%s is not registered as builtin", tt.expr)
			}
			if name != tt.want {
				t.Errorf("BuiltinName(%s) = %q, want %q", tt.expr, name, tt.want)
			}
		})
	}
}

func TestRealmUserObjectsAreNotBuiltin(t *testing.T) {
	res := New().Evaluate(context.Background(), "this.a = {}; this.f = function () {};")
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	root := res.Root.(*goja.Object)

	if res.Realm.IsBuiltin(root) {
		t.Error("receiver should not be builtin")
	}
	for _, key := range []string{"a", "f"} {
		if res.Realm.IsBuiltin(root.Get(key).(*goja.Object)) {
			t.Errorf("this.%s should not be builtin", key)
		}
	}
}

func TestRealmDescribeDoesNotRunGetters(t *testing.T) {
	res := New().Evaluate(context.Background(), `
		this.calls = 0;
		var self = this;
		Object.defineProperty(this, "x", { get: function () { self.calls++; return 1; }, enumerable: true });
		this.y = 2;
	`)
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	root := res.Root.(*goja.Object)

	p, ok := res.Realm.Describe(root, "x")
	if !ok {
		t.Fatal("Describe(x) failed")
	}
	if !p.IsAccessor() || p.Getter == nil || p.Setter != nil {
		t.Errorf("Describe(x) = %+v, want getter-only accessor", p)
	}
	if !p.Enumerable {
		t.Error("x should be enumerable")
	}

	p, ok = res.Realm.Describe(root, "y")
	if !ok || p.IsAccessor() || p.Value.ToInteger() != 2 {
		t.Errorf("Describe(y) = %+v, %v; want data property 2", p, ok)
	}

	if calls := root.Get("calls").ToInteger(); calls != 0 {
		t.Errorf("getter ran %d times during Describe", calls)
	}
}

func TestRealmDescribeMissing(t *testing.T) {
	res := New().Evaluate(context.Background(), "")
	if _, ok := res.Realm.Describe(res.Root.(*goja.Object), "nope"); ok {
		t.Error("Describe() of a missing property should report false")
	}
}

func TestRealmDescribeSurvivesTampering(t *testing.T) {
	res := New().Evaluate(context.Background(), "this.a = 1; delete Object.getOwnPropertyDescriptor;")
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	if _, ok := res.Realm.Describe(res.Root.(*goja.Object), "a"); !ok {
		t.Error("Describe() should keep working after the global is deleted")
	}
}

func TestRealmDescribeIgnoresInheritedDescriptorFields(t *testing.T) {
	res := New().Evaluate(context.Background(), `
		Object.defineProperty(Object.prototype, "get", { value: function g() {} });
		Object.defineProperty(Object.prototype, "value", { value: 42 });
		this.a = 1;
		this.b = undefined;
	`)
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	root := res.Root.(*goja.Object)

	p, ok := res.Realm.Describe(root, "a")
	if !ok {
		t.Fatal("Describe(a) not found")
	}
	if p.IsAccessor() {
		t.Fatalf("Describe(a) = accessor, want data property")
	}
	if p.Value.ToInteger() != 1 || !p.Enumerable {
		t.Errorf("Describe(a) = %v enumerable=%v, want 1 enumerable", p.Value, p.Enumerable)
	}

	p, ok = res.Realm.Describe(root, "b")
	if !ok || p.IsAccessor() || !goja.IsUndefined(p.Value) {
		t.Errorf("Describe(b) = %+v, want undefined data property", p)
	}
}

func TestRealmGuardInterruptsTraps(t *testing.T) {
	res := New().Evaluate(context.Background(), `
		this.p = new Proxy({}, { ownKeys: function () { for (;;) {} } });
	`)
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	p := res.Root.(*goja.Object).Get("p").(*goja.Object)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	release := res.Realm.Guard(ctx)

	if keys := res.Realm.OwnKeys(p); len(keys) != 0 {
		t.Errorf("OwnKeys() = %v, want none once interrupted", keys)
	}
	if !res.Realm.Expired() {
		t.Error("Expired() = false after the guard fired")
	}
	release()
	if res.Realm.Expired() {
		t.Error("Expired() = true after release")
	}
}

func TestRealmOwnKeysThrowingProxy(t *testing.T) {
	res := New().Evaluate(context.Background(), `
		this.p = new Proxy({}, { ownKeys: function () { throw new Error("nope"); } });
	`)
	if res.Failed() {
		t.Fatalf("Evaluate() error: %v", res.Err)
	}
	p := res.Root.(*goja.Object).Get("p").(*goja.Object)
	if keys := res.Realm.OwnKeys(p); len(keys) != 0 {
		t.Errorf("OwnKeys() = %v, want none for a throwing proxy", keys)
	}
}

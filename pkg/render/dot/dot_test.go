package dot

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/sandbox"
)

func evalGraph(t *testing.T, code string, opts objgraph.Options) *objgraph.Graph {
	t.Helper()
	res := sandbox.New().Evaluate(context.Background(), code)
	return objgraph.Build(res, opts)
}

func TestSerialize_Basic(t *testing.T) {
	g := objgraph.New()
	g.AddNode(objgraph.KindPlainObject, "Object")
	g.AddNode(objgraph.KindArray, "Array[0]")
	g.AddEdge(1, 2, "a")

	out := Serialize(g, Options{})

	if !strings.HasPrefix(out, "digraph G {\n") {
		t.Error("Serialize() output missing digraph declaration")
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("Serialize() output not closed")
	}
	if !strings.Contains(out, `n1 [label="Object", peripheries=2];`) {
		t.Errorf("Serialize() missing root statement:\n%s", out)
	}
	if !strings.Contains(out, `n2 [label="Array[0]", fillcolor="#fff3c4"];`) {
		t.Errorf("Serialize() missing array statement:\n%s", out)
	}
	if !strings.Contains(out, `n1 -> n2 [label="a"];`) {
		t.Errorf("Serialize() missing edge:\n%s", out)
	}
}

func TestSerialize_Order(t *testing.T) {
	g := evalGraph(t, "this.b = 1; this.a = 2; this.c = { d: 3 };", objgraph.Options{})
	out := Serialize(g, Options{})

	prev := -1
	for _, stmt := range []string{"n1 [", "n2 [", "n3 [", "n4 [", "n5 [", `n1 -> n2 [label="b"]`, `n1 -> n3 [label="a"]`, `n1 -> n4 [label="c"]`, `n4 -> n5 [label="d"]`} {
		i := strings.Index(out, stmt)
		if i < 0 {
			t.Fatalf("missing %q in:\n%s", stmt, out)
		}
		if i < prev {
			t.Errorf("%q out of order in:\n%s", stmt, out)
		}
		prev = i
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	code := `var s = {}; this.a = [s, s]; this.f = function f() {}; this.self = this;`
	opts := objgraph.Options{ShowBuiltins: true, ShowAllFunctions: true}

	first := Serialize(evalGraph(t, code, opts), Options{})
	second := Serialize(evalGraph(t, code, opts), Options{})
	if first != second {
		t.Errorf("Serialize() not deterministic:\n%s\n---\n%s", first, second)
	}
}

func TestSerialize_EmptyGraph(t *testing.T) {
	out := Serialize(evalGraph(t, "", objgraph.Options{}), Options{})

	if strings.Count(out, "[label=") != 1 {
		t.Errorf("want exactly one node statement:\n%s", out)
	}
	if strings.Contains(out, "->") {
		t.Errorf("want no edges:\n%s", out)
	}
}

func TestSerialize_Error(t *testing.T) {
	out := Serialize(evalGraph(t, "asdf", objgraph.Options{}), Options{})

	if !strings.Contains(out, "ReferenceError") {
		t.Errorf("missing error kind:\n%s", out)
	}
	if !strings.Contains(out, "color=red") {
		t.Errorf("error node not red:\n%s", out)
	}
}

func TestSerialize_ShowBuiltins(t *testing.T) {
	out := Serialize(evalGraph(t, "this.a = []", objgraph.Options{ShowBuiltins: true}), Options{})

	if !strings.Contains(out, "Array()") {
		t.Errorf("missing Array() node:\n%s", out)
	}
	if !strings.Contains(out, "dashed") {
		t.Errorf("builtin nodes not dashed:\n%s", out)
	}
}

func TestSerialize_Constructor(t *testing.T) {
	out := Serialize(evalGraph(t, "this.a = function a() {}", objgraph.Options{ShowAllFunctions: true}), Options{})

	if !strings.Contains(out, `[label="constructor"]`) {
		t.Errorf("missing constructor edge:\n%s", out)
	}
}

func TestSerialize_RankDir(t *testing.T) {
	g := evalGraph(t, "", objgraph.Options{})

	tests := []struct {
		dir  string
		want string
	}{
		{"", "rankdir=TB;"},
		{"LR", "rankdir=LR;"},
		{"bogus", "rankdir=TB;"},
	}
	for _, tt := range tests {
		if out := Serialize(g, Options{RankDir: tt.dir}); !strings.Contains(out, tt.want) {
			t.Errorf("RankDir %q: missing %q", tt.dir, tt.want)
		}
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`"hi"`, `"\"hi\""`},
		{`a\b`, `"a\\b"`},
		{"a\nb", `"a\nb"`},
		{"a\tb\x00", `"a b "`},
		{"x…", `"x…"`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSerialize_StringLabelEscaped(t *testing.T) {
	out := Serialize(evalGraph(t, `this["we\"ird"] = "a\\b"`, objgraph.Options{}), Options{})

	if !strings.Contains(out, `[label="we\"ird"]`) {
		t.Errorf("edge label not escaped:\n%s", out)
	}
	if !strings.Contains(out, `label="\"a\\\\b\""`) {
		t.Errorf("node label not escaped:\n%s", out)
	}
}

func TestValidRankDir(t *testing.T) {
	for _, dir := range []string{"", "TB", "LR", "BT", "RL"} {
		if !ValidRankDir(dir) {
			t.Errorf("ValidRankDir(%q) = false", dir)
		}
	}
	if ValidRankDir("XY") {
		t.Error("ValidRankDir(XY) = true")
	}
}

func TestStandaloneSVG(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "graphviz output",
			in: `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd">
<!-- Generated by graphviz -->
<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`,
		},
		{
			name: "no viewBox",
			in:   `<svg width="1pt"><g/></svg>`,
			want: `<svg width="1pt"><g/></svg>`,
		},
		{
			name: "empty drawing",
			in:   `<svg viewBox="0 0 0 0"></svg>`,
			want: `<svg viewBox="0 0 0 0"></svg>`,
		},
		{
			name: "not svg",
			in:   `hello`,
			want: `hello`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(standaloneSVG([]byte(tt.in))); got != tt.want {
				t.Errorf("standaloneSVG() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestConvertSVG_UnknownFormat(t *testing.T) {
	_, err := ConvertSVG(context.Background(), []byte("<svg/>"), "gif", 1)
	if err == nil || !strings.Contains(err.Error(), `"gif"`) {
		t.Fatalf("err = %v, want unsupported format", err)
	}
}

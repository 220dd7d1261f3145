package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/config"
	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/watch"
)

// testEnv isolates a test from the user's config, cache and snippets.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	captureUI(t)
	return dir
}

// run executes the root command and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEvalStdin(t *testing.T) {
	testEnv(t)

	out, err := run(t, "this.a = [1];", "eval", "-")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !strings.HasPrefix(out, "digraph G {") {
		t.Errorf("output is not DOT:\n%s", out)
	}
	if !strings.Contains(out, `n1 -> n2 [label="a"];`) {
		t.Errorf("missing edge a:\n%s", out)
	}
}

func TestEvalFileJSON(t *testing.T) {
	dir := testEnv(t)
	path := filepath.Join(dir, "cycle.js")
	if err := os.WriteFile(path, []byte("var a = {}; a.self = a; this.a = a;"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "eval", path, "-f", "json")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}

	var doc objgraph.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if doc.Root != 1 || len(doc.Nodes) != 2 || len(doc.Edges) != 2 {
		t.Errorf("doc = %+v, want 2 nodes and 2 edges from root 1", doc)
	}
	if len(doc.Cycles) != 1 {
		t.Errorf("cycles = %v, want one", doc.Cycles)
	}
}

func TestEvalFlags(t *testing.T) {
	testEnv(t)
	const code = "this.f = function f() {};"

	out, err := run(t, code, "eval", "-")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, `[label="prototype"]`) {
		t.Errorf("functions expanded without --functions:\n%s", out)
	}

	out, err = run(t, code, "eval", "-", "--functions")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `[label="prototype"]`) {
		t.Errorf("--functions did not expand f:\n%s", out)
	}
}

func TestEvalWritesFiles(t *testing.T) {
	dir := testEnv(t)

	out, err := run(t, "this.x = 1;", "eval", "-", "-f", "dot,json", "-o", "out/graph.txt")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing when writing files", out)
	}
	for _, name := range []string{"graph.dot", "graph.json"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestEvalThrowingSnippet(t *testing.T) {
	testEnv(t)
	ui := uiOut.(*syncBuffer)

	out, err := run(t, `throw new TypeError("boom")`, "eval", "-")
	if err != nil {
		t.Fatalf("a throwing snippet should still produce a graph: %v", err)
	}
	if !strings.Contains(out, "TypeError: boom") {
		t.Errorf("error graph missing message:\n%s", out)
	}
	if !strings.Contains(ui.String(), "threw") {
		t.Errorf("no warning printed: %q", ui.String())
	}
}

func TestEvalSourceErrors(t *testing.T) {
	dir := testEnv(t)

	tests := []struct {
		name string
		args []string
		code apperrors.Code
	}{
		{"nothing", []string{"eval"}, apperrors.ErrCodeInvalidInput},
		{"two sources", []string{"eval", "-", "--sample", "object"}, apperrors.ErrCodeInvalidInput},
		{"unknown sample", []string{"eval", "--sample", "nope"}, apperrors.ErrCodeSampleNotFound},
		{"missing file", []string{"eval", filepath.Join(dir, "missing.js")}, apperrors.ErrCodeFileNotFound},
		{"bad snippet id", []string{"eval", "--snippet", "not-a-uuid"}, apperrors.ErrCodeInvalidSnippet},
		{"bad format", []string{"eval", "--sample", "object", "-f", "gif"}, apperrors.ErrCodeInvalidFormat},
		{"bad rankdir", []string{"eval", "--sample", "object", "--rankdir", "up"}, apperrors.ErrCodeInvalidRankDir},
		{"negative max nodes", []string{"eval", "--sample", "object", "--max-nodes", "-1"}, apperrors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestSamplesCommand(t *testing.T) {
	testEnv(t)

	out, err := run(t, "", "samples")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"object", "constructor", "(default)"} {
		if !strings.Contains(out, want) {
			t.Errorf("samples list missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "", "samples", "array")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "this.primes") {
		t.Errorf("samples array printed %q", out)
	}

	_, err = run(t, "", "samples", "nope")
	if !apperrors.Is(err, apperrors.ErrCodeSampleNotFound) {
		t.Errorf("err = %v, want SAMPLE_NOT_FOUND", err)
	}
}

func TestSnippetsLifecycle(t *testing.T) {
	testEnv(t)

	out, err := run(t, "this.tiny = [1];", "snippets", "save", "tiny", "-", "--functions")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id := strings.TrimSpace(out)
	if apperrors.ValidateSnippetID(id) != nil {
		t.Fatalf("save printed %q, want an id", out)
	}

	out, err = run(t, "", "snippets", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "functions") {
		t.Errorf("list missing snippet:\n%s", out)
	}

	out, err = run(t, "", "snippets", "show", id)
	if err != nil {
		t.Fatal(err)
	}
	if out != "this.tiny = [1];" {
		t.Errorf("show = %q", out)
	}

	out, err = run(t, "", "eval", "--snippet", id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `[label="tiny"]`) {
		t.Errorf("eval --snippet:\n%s", out)
	}

	if _, err := run(t, "", "snippets", "rm", id); err != nil {
		t.Fatal(err)
	}
	_, err = run(t, "", "snippets", "show", id)
	if !apperrors.Is(err, apperrors.ErrCodeSnippetNotFound) {
		t.Errorf("show after rm: %v, want SNIPPET_NOT_FOUND", err)
	}
}

func TestSnippetsSaveValidation(t *testing.T) {
	testEnv(t)

	_, err := run(t, "this.a = 1;", "snippets", "save", "   ", "-")
	if !apperrors.IsInvalid(err) {
		t.Errorf("blank name: %v, want invalid", err)
	}
	_, err = run(t, "this.a = 1;", "snippets", "rm", "x")
	if !apperrors.IsInvalid(err) {
		t.Errorf("bad id: %v, want invalid", err)
	}
}

func TestCachePath(t *testing.T) {
	dir := testEnv(t)

	out, err := run(t, "", "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "cache", appName); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}

	out, err = run(t, "", "cache", "path", "--cache-dir", "/tmp/elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "/tmp/elsewhere" {
		t.Errorf("cache path with --cache-dir = %q", out)
	}
}

func TestCacheClear(t *testing.T) {
	dir := testEnv(t)
	cacheRoot := filepath.Join(dir, "cache", appName)

	if _, err := run(t, "this.a = 1;", "eval", "-", "-f", "svg", "-o", "a.svg"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if entries, _ := os.ReadDir(cacheRoot); len(entries) == 0 {
		t.Fatal("svg render was not cached")
	}

	if _, err := run(t, "", "cache", "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	var files int
	_ = filepath.WalkDir(cacheRoot, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return nil
	})
	if files != 0 {
		t.Errorf("%d cache files left after clear", files)
	}
}

func TestCacheInfo(t *testing.T) {
	testEnv(t)
	ui := captureUI(t)

	if _, err := run(t, "this.a = 1;", "eval", "-", "-f", "svg", "-o", "a.svg"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if _, err := run(t, "", "cache", "info"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Backend", "file", "Entries", "1"} {
		if !strings.Contains(ui.String(), want) {
			t.Errorf("cache info missing %q:\n%s", want, ui.String())
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg")

	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"configured", &config.Config{Cache: config.CacheConfig{Dir: "/custom"}}, "/custom"},
		{"xdg", &config.Config{}, filepath.Join("/xdg", appName)},
		{"nil config", nil, filepath.Join("/xdg", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cacheDir(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"dot"}},
		{"svg", []string{"svg"}},
		{" SVG , png,", []string{"svg", "png"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputBase(t *testing.T) {
	tests := []struct {
		output, src string
		formats     int
		want        string
	}{
		{"graph.svg", "a.js", 1, "graph.svg"},
		{"out/graph.svg", "a.js", 2, "out/graph"},
		{"", "examples/a.js", 1, "examples/a"},
		{"", "stdin", 2, "graph"},
		{"", "constructor", 1, "constructor"},
	}
	for _, tt := range tests {
		if got := outputBase(tt.output, tt.src, tt.formats); got != tt.want {
			t.Errorf("outputBase(%q, %q, %d) = %q, want %q", tt.output, tt.src, tt.formats, got, tt.want)
		}
	}
}

func TestWatchTarget(t *testing.T) {
	tests := []struct {
		name, src, output, format string
		wantFormat, wantOut       string
		wantErr                   bool
	}{
		{"defaults", "a.js", "", "", "svg", "a.svg", false},
		{"from extension", "a.js", "/tmp/g.PNG", "", "png", "/tmp/g.PNG", false},
		{"explicit format", "a.js", "", "dot", "dot", "a.dot", false},
		{"bad format", "a.js", "g.gif", "", "", "", true},
		{"overwrites source", "a.dot", "", "dot", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, out, err := watchTarget(tt.src, tt.output, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if format != tt.wantFormat || out != tt.wantOut {
				t.Errorf("watchTarget() = %q, %q, want %q, %q", format, out, tt.wantFormat, tt.wantOut)
			}
		})
	}
}

func TestRebuild(t *testing.T) {
	dir := testEnv(t)
	c := New(io.Discard, LogInfo)
	runner, err := c.newRunner(context.Background(), config.Default(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer runner.Close()

	opts := pipeline.Options{Formats: []string{pipeline.FormatDOT}}
	out := filepath.Join(dir, "live.dot")

	ev := watchEvent("this.a = 1;")
	if err := rebuild(context.Background(), runner, opts, ev, out); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `[label="a"]`) {
		t.Errorf("written graph:\n%s", data)
	}

	ev = watchEvent("")
	ev.Err = os.ErrNotExist
	if err := rebuild(context.Background(), runner, opts, ev, out); err == nil {
		t.Error("rebuild with a read error should fail")
	}
}

func watchEvent(code string) watch.Event {
	return watch.Event{Path: "live.js", Code: code, Time: time.Now()}
}

func TestCompletion(t *testing.T) {
	testEnv(t)

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := run(t, "", "completion", shell)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, "objgraph") {
				t.Errorf("%s completion does not mention objgraph", shell)
			}
		})
	}

	if _, err := run(t, "", "completion", "tcsh"); err == nil {
		t.Error("completion tcsh should fail")
	}
}

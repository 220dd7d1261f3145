package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/config"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/samples"
)

// evalOpts holds the command-line flags for the eval command that are not
// part of the layered configuration.
type evalOpts struct {
	output    string  // output file (single format) or base path (several)
	formats   string  // comma-separated output formats
	sample    string  // evaluate a built-in sample instead of a file
	snippetID string  // evaluate a saved snippet instead of a file
	noCache   bool    // skip the artifact cache entirely
	refresh   bool    // ignore cached artifacts but write fresh ones
	scale     float64 // PNG resolution multiplier
}

// source is a snippet to evaluate together with the flags it carries.
type source struct {
	name             string
	code             string
	showBuiltins     bool
	showAllFunctions bool
}

func (c *CLI) evalCommand() *cobra.Command {
	var opts evalOpts

	cmd := &cobra.Command{
		Use:   "eval [file|-]",
		Short: "Evaluate a snippet and write its object graph",
		Long: `Evaluate a JavaScript snippet with a fresh empty object as "this" and write
the graph of every object reachable from it.

With a single text format (dot, json) and no --output the graph is written to
stdout. Binary formats are written next to the input unless --output is set.`,
		Example: `  objgraph eval snippet.js
  echo 'this.a = [1, 2]' | objgraph eval - -f svg -o graph.svg
  objgraph eval --sample constructor --functions -f dot,svg -o out/constructor`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			src, err := c.readSource(cmd.Context(), cmd.InOrStdin(), cfg, args, opts)
			if err != nil {
				return err
			}
			return c.runEval(cmd.Context(), cmd.OutOrStdout(), cfg, src, opts)
		},
	}

	addBuildFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): dot (default), json, svg, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&opts.sample, "sample", "", "evaluate a built-in sample (see 'objgraph samples')")
	cmd.Flags().StringVar(&opts.snippetID, "snippet", "", "evaluate a saved snippet by id")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even if artifacts are cached")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG resolution multiplier")

	_ = cmd.RegisterFlagCompletionFunc("sample", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return samples.Builtin().Names(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{"dot", "json", "svg", "png", "pdf"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// readSource resolves exactly one of a file argument, --sample or --snippet.
func (c *CLI) readSource(ctx context.Context, stdin io.Reader, cfg *config.Config, args []string, opts evalOpts) (source, error) {
	given := 0
	if len(args) > 0 {
		given++
	}
	if opts.sample != "" {
		given++
	}
	if opts.snippetID != "" {
		given++
	}
	switch {
	case given == 0:
		return source{}, apperrors.New(apperrors.ErrCodeInvalidInput, "nothing to evaluate: pass a file, - for stdin, --sample or --snippet")
	case given > 1:
		return source{}, apperrors.New(apperrors.ErrCodeInvalidInput, "pass only one of a file, --sample or --snippet")
	}

	switch {
	case opts.sample != "":
		s, ok := samples.Lookup(opts.sample)
		if !ok {
			return source{}, apperrors.New(apperrors.ErrCodeSampleNotFound,
				"no sample named %q (available: %s)", opts.sample, strings.Join(samples.Builtin().Names(), ", "))
		}
		return source{name: s.Name, code: s.Code}, nil

	case opts.snippetID != "":
		return loadSnippet(ctx, cfg, opts.snippetID)
	}

	code, err := readCode(stdin, args[0])
	if err != nil {
		return source{}, err
	}
	name := args[0]
	if name == "-" {
		name = "stdin"
	}
	return source{name: name, code: code}, nil
}

func (c *CLI) runEval(ctx context.Context, stdout io.Writer, cfg *config.Config, src source, opts evalOpts) error {
	popts := cfg.PipelineOptions()
	popts.Code = src.code
	popts.ShowBuiltins = popts.ShowBuiltins || src.showBuiltins
	popts.ShowAllFunctions = popts.ShowAllFunctions || src.showAllFunctions
	popts.Formats = parseFormats(opts.formats)
	popts.Scale = opts.scale
	popts.Refresh = opts.refresh
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	toStdout := opts.output == "" && len(popts.Formats) == 1 && isText(popts.Formats[0])

	prog := startStopwatch(c.Logger)
	var spin *spinner
	if !toStdout {
		spin = startSpinner(ctx, "Evaluating "+src.name+"...")
	}
	res, err := runner.Execute(ctx, popts)
	switch {
	case spin == nil:
	case err != nil:
		spin.fail("Evaluation failed")
	default:
		spin.stop()
	}
	if err != nil {
		return err
	}
	if res.EvalError != nil {
		printWarning("%s threw %s", src.name, res.EvalError)
	}

	if toStdout {
		_, err := stdout.Write(res.Artifacts[popts.Formats[0]])
		return err
	}

	paths, err := writeArtifacts(res.Artifacts, popts.Formats, outputBase(opts.output, src.name, len(popts.Formats)))
	if err != nil {
		return err
	}
	prog.done("evaluated", "source", src.name, "formats", strings.Join(popts.Formats, ","))
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats, res.CacheInfo.RenderHit)
	if res.Stats.Truncated {
		printWarning("graph truncated at %d nodes (node limit %d or timeout reached)", res.Stats.NodeCount, popts.MaxNodes)
	}
	return nil
}

func isText(format string) bool {
	return format == pipeline.FormatDOT || format == pipeline.FormatJSON
}

// outputBase returns the path artifacts are written to. With a single format
// an explicit output is used as is; otherwise it is a base path that gets
// one extension per format.
func outputBase(output, srcName string, formats int) string {
	if output != "" {
		if formats == 1 {
			return output
		}
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	switch srcName {
	case "", "stdin":
		return "graph"
	}
	return strings.TrimSuffix(srcName, filepath.Ext(srcName))
}

// writeArtifacts writes one file per format. A base that already carries the
// extension of a single format is used unchanged.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := base
		if len(formats) > 1 || filepath.Ext(base) != "."+f {
			path = base + "." + f
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		if err := writeFileAtomic(path, artifacts[f]); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeFileAtomic replaces path so that viewers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/watch"
)

func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		format string
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-render a snippet every time it is saved",
		Long: `Watch a snippet file and rewrite its graph after every save. Point an image
viewer that reloads on change at the output file for a live preview.

The format is taken from --format, else from the extension of --output,
else SVG.`,
		Example: `  objgraph watch snippet.js
  objgraph watch snippet.js -o /tmp/graph.png --builtins`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			f, out, err := watchTarget(args[0], output, format)
			if err != nil {
				return err
			}

			popts := cfg.PipelineOptions()
			popts.Formats = []string{f}
			popts.Scale = scale

			w, err := watch.New(args[0], watch.WithLogger(logger))
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "watch %s", args[0])
			}

			runner, err := c.newRunner(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			printInfo("Watching %s", w.Path())
			printDetail("writing %s, press Ctrl+C to stop", out)

			return w.Run(ctx, func(ctx context.Context, ev watch.Event) {
				if err := rebuild(ctx, runner, popts, ev, out); err != nil {
					printError("%v", err)
				}
			})
		},
	}

	addBuildFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <file> with the format's extension)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot, json, svg, png or pdf")
	cmd.Flags().Float64Var(&scale, "scale", pipeline.DefaultScale, "PNG resolution multiplier")

	return cmd
}

// watchTarget picks the output format and path for a watched file.
func watchTarget(src, output, format string) (string, string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return "", "", err
	}
	if output == "" {
		output = strings.TrimSuffix(src, filepath.Ext(src)) + "." + format
	}
	if filepath.Clean(output) == filepath.Clean(src) {
		return "", "", apperrors.New(apperrors.ErrCodeInvalidInput, "output %s would overwrite the watched file", output)
	}
	return format, output, nil
}

// rebuild evaluates one version of the watched file and replaces out. A
// snippet that throws still produces its error graph.
func rebuild(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, ev watch.Event, out string) error {
	if ev.Err != nil {
		return fmt.Errorf("read %s: %w", ev.Path, ev.Err)
	}

	opts.Code = ev.Code
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(out, res.Artifacts[opts.Formats[0]]); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	stamp := ev.Time.Format("15:04:05")
	if res.EvalError != nil {
		printWarning("%s %s", stamp, res.EvalError)
		return nil
	}
	printSuccess("%s %s", stamp, statsSummary(res.Stats))
	return nil
}

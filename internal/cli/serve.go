package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/observability"
	"github.com/matzehuels/objgraph/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser playground",
		Long: `Serve the playground page and its JSON API. Each request evaluates its
snippet in a fresh realm; saved snippets go to the configured store.`,
		Example: `  objgraph serve
  objgraph serve --addr :9000 --store file
  OBJGRAPH_CACHE_BACKEND=redis objgraph serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			store, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			scfg := server.Config{
				Runner:   runner,
				Store:    store,
				Defaults: cfg.PipelineOptions(),
				Logger:   logger,
			}
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				observability.Install(observability.NewPrometheusHooks(reg))
				defer observability.Reset()
				scfg.Gatherer = reg
			}

			srv, err := server.New(scfg)
			if err != nil {
				return err
			}

			printSuccess("Playground listening on http://%s", cfg.Addr)
			printDetail("store: %s, cache: %s", cfg.Store.Backend, cfg.Cache.Backend)
			return srv.ListenAndServe(ctx, cfg.Addr)
		},
	}

	addBuildFlags(cmd.Flags())
	cmd.Flags().String("addr", server.DefaultAddr, "listen address")
	cmd.Flags().String("store", "", "snippet store: memory, file or mongo")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

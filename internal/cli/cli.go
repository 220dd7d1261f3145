// Package cli implements the objgraph command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/objgraph/pkg/buildinfo"
	"github.com/matzehuels/objgraph/pkg/cache"
	"github.com/matzehuels/objgraph/pkg/config"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/sandbox"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "objgraph"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "objgraph draws the object graph a JavaScript snippet leaves behind",
		Long: `objgraph evaluates a JavaScript snippet against a fresh receiver object,
walks every object reachable from it and emits the result as a Graphviz graph.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")

	root.AddCommand(c.evalCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.samplesCommand())
	root.AddCommand(c.snippetsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the layered configuration, letting the command's flags
// override file and environment values.
func (c *CLI) loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(c.configPath, flags)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config",
		"cache", cfg.Cache.Backend,
		"store", cfg.Store.Backend,
		"timeout", cfg.Timeout,
		"max_nodes", cfg.MaxNodes)
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}

	// Rendering depends on the bundled Graphviz, so artifacts are scoped to
	// the binary's version.
	keyer := cache.Scoped(cache.HashKeyer{}, buildinfo.Get().Version+":")

	r := pipeline.NewRunner(cc, keyer, c.Logger, sandbox.WithTimeout(cfg.Timeout))
	if cfg.Cache.TTL > 0 {
		r.TTL = cfg.Cache.TTL
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	dir, err := cacheDir(cfg)
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured snippet store.
func newStore(ctx context.Context, cfg *config.Config) (snippet.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		return snippet.NewFileStore(cfg.Store.Dir)
	case config.StoreMongo:
		return snippet.NewMongoStore(ctx, snippet.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
	}
	return snippet.NewMemoryStore(), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the artifact cache directory: the configured one, else
// $XDG_CACHE_HOME/objgraph, else the platform cache directory.
func cacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatDOT}
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// addBuildFlags registers the flags shared by every command that builds a
// graph. Their names are mapped onto config keys by config.Load.
func addBuildFlags(fs *pflag.FlagSet) {
	fs.Bool("builtins", false, "show built-in objects such as Object.prototype")
	fs.Bool("functions", false, "expand functions (prototype and constructor links)")
	fs.Int("max-nodes", pipeline.DefaultMaxNodes, "stop adding nodes after this many (0 = unlimited)")
	fs.Duration("timeout", pipeline.DefaultTimeout, "abort evaluation after this long (0 = no limit)")
	fs.String("rankdir", pipeline.DefaultRankDir, "graph direction: TB, LR, BT or RL")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/cache"
	"github.com/matzehuels/objgraph/pkg/config"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the rendered artifact cache",
	}
	cmd.PersistentFlags().String("cache-dir", "", "cache directory (file backend)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache directory",
			Args:  cobra.NoArgs,
			RunE:  c.runCachePath,
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the cache backend and how much it holds",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheInfo,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached SVG, PNG and PDF render",
			Args:  cobra.NoArgs,
			RunE:  c.runCacheClear,
		},
	)
	return cmd
}

func (c *CLI) runCachePath(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return fmt.Errorf("resolve cache dir: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
	return err
}

func (c *CLI) runCacheInfo(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	printKeyValue("Backend", cfg.Cache.Backend)
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		printKeyValue("Address", cfg.Redis.Addr)
		return nil
	case config.CacheNone:
		return nil
	}

	dir, err := cacheDir(cfg)
	if err != nil {
		return fmt.Errorf("resolve cache dir: %w", err)
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	n, size, err := fc.Usage()
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	printKeyValue("Directory", dir)
	printKeyValue("Entries", fmt.Sprint(n))
	printKeyValue("Size", formatBytes(size))
	return nil
}

func (c *CLI) runCacheClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Cache.Backend == config.CacheNone {
		printInfo("Cache is disabled")
		return nil
	}

	cc, err := c.newCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer cc.Close()

	cl, ok := cc.(cache.Clearer)
	if !ok {
		c.Logger.Debug("cache backend cannot be cleared", "backend", cfg.Cache.Backend)
		printInfo("Nothing to clear")
		return nil
	}
	if err := cl.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	printSuccess("Cleared the %s cache", cfg.Cache.Backend)
	return nil
}

// formatBytes renders n with a binary unit, e.g. "1.5 KiB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

package cmd

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/urizennnn/swebench-contributions/cache"
	"github.com/urizennnn/swebench-contributions/config"
)

var cacheFlags struct {
	dir     string
	backend string
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the GitHub API response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache backend, location and entry count",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	pf := cacheCmd.PersistentFlags()
	pf.StringVar(&cacheFlags.dir, "github-cache-dir", "", "directory for cached GitHub API responses")
	pf.StringVar(&cacheFlags.backend, "cache-backend", "", "response cache backend: sqlite or redis")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func cacheConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("github-cache-dir") {
		cfg.CacheDir = cacheFlags.dir
	}
	if cmd.Flags().Changed("cache-backend") {
		cfg.CacheBackend = cacheFlags.backend
	}
	return cfg, config.NewLoader(config.DefaultPrefix).Check(cfg)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	cfg, err := cacheConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Backend:   %s\n", cfg.CacheBackend)
	if s, ok := store.(*cache.SQLiteStore); ok {
		fmt.Fprintf(w, "Location:  %s\n", s.Path())
		if size, err := s.Size(); err == nil {
			fmt.Fprintf(w, "Size:      %s\n", humanize.Bytes(uint64(size)))
		}
	} else {
		fmt.Fprintf(w, "Location:  %s\n", redactURL(cfg.RedisURL))
	}
	fmt.Fprintf(w, "Entries:   %d\n", n)
	fmt.Fprintf(w, "Expiry:    %d days\n", cfg.CacheExpiryDays)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cfg, err := cacheConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis"
	}
	return u.Redacted()
}

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gogithub "github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/urizennnn/swebench-contributions/analysis"
	"github.com/urizennnn/swebench-contributions/cache"
	"github.com/urizennnn/swebench-contributions/classify"
	"github.com/urizennnn/swebench-contributions/config"
	"github.com/urizennnn/swebench-contributions/dataset"
	"github.com/urizennnn/swebench-contributions/github"
	"github.com/urizennnn/swebench-contributions/metrics"
	"github.com/urizennnn/swebench-contributions/ratelimit"
	"github.com/urizennnn/swebench-contributions/redis"
)

var analyzeFlags struct {
	username     string
	datasets     string
	fullData     string
	verifiedData string
	output       string
	token        string
	noGithub     bool

	githubCacheDir string
	cacheBackend   string
	redisURL       string
	noCache        bool
	clearCache     bool
	cacheExpiry    int
	timeout        int
	rateLimit      int

	loadResults string
	metricsFile string
}

func registerAnalyzeFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&analyzeFlags.username, "username", "", "GitHub username to check (default: last used)")
	f.StringVar(&analyzeFlags.datasets, "dataset", "both", "datasets to analyze: both, swe-bench, swe-bench-verified")
	f.StringVar(&analyzeFlags.fullData, "full-data", "", "SWE-bench JSON/JSONL file")
	f.StringVar(&analyzeFlags.verifiedData, "verified-data", "", "SWE-bench Verified JSON/JSONL file")
	f.StringVar(&analyzeFlags.output, "output", "", "results file")
	f.StringVar(&analyzeFlags.token, "token", "", "GitHub API token (default: GITHUB_TOKEN)")
	f.BoolVar(&analyzeFlags.noGithub, "no-github", false, "offline mode: only match dataset text")

	f.StringVar(&analyzeFlags.githubCacheDir, "github-cache-dir", "", "directory for cached GitHub API responses")
	f.StringVar(&analyzeFlags.cacheBackend, "cache-backend", "", "response cache backend: sqlite or redis")
	f.StringVar(&analyzeFlags.redisURL, "redis-url", "", "redis URL for the redis cache backend")
	f.BoolVar(&analyzeFlags.noCache, "no-cache", false, "disable GitHub API response caching")
	f.BoolVar(&analyzeFlags.clearCache, "clear-cache", false, "clear the GitHub API response cache before running")
	f.IntVar(&analyzeFlags.cacheExpiry, "cache-expiry", 0, "days after which cached GitHub responses expire")
	f.IntVar(&analyzeFlags.timeout, "timeout", 0, "timeout in seconds for each GitHub API request")
	f.IntVar(&analyzeFlags.rateLimit, "rate-limit", 0, "maximum GitHub requests per minute (0: only honour the API quota)")

	f.StringVar(&analyzeFlags.loadResults, "load-results", "", "print a saved results file instead of analyzing")
	f.StringVar(&analyzeFlags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
}

// applyFlags overrides environment settings with the flags the user set.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("username", func() { cfg.Username = analyzeFlags.username })
	set("full-data", func() { cfg.DatasetFull = analyzeFlags.fullData })
	set("verified-data", func() { cfg.DatasetVerified = analyzeFlags.verifiedData })
	set("output", func() { cfg.Output = analyzeFlags.output })
	set("token", func() { cfg.GithubToken = analyzeFlags.token })
	set("github-cache-dir", func() { cfg.CacheDir = analyzeFlags.githubCacheDir })
	set("cache-backend", func() { cfg.CacheBackend = analyzeFlags.cacheBackend })
	set("redis-url", func() { cfg.RedisURL = analyzeFlags.redisURL })
	set("no-cache", func() { cfg.CacheEnabled = !analyzeFlags.noCache })
	set("cache-expiry", func() { cfg.CacheExpiryDays = analyzeFlags.cacheExpiry })
	set("timeout", func() { cfg.HTTPClientTimeout = time.Duration(analyzeFlags.timeout) * time.Second })
	set("rate-limit", func() { cfg.GithubRateLimit = analyzeFlags.rateLimit })
	set("metrics-file", func() { cfg.MetricsFile = analyzeFlags.metricsFile })
}

type runOptions struct {
	Username   string
	Datasets   []dataset.Name
	Offline    bool
	ClearCache bool
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), &cfg)
	if err := config.NewLoader(config.DefaultPrefix).Check(cfg); err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if analyzeFlags.loadResults != "" {
		return showResults(w, analyzeFlags.loadResults)
	}

	st, err := config.LoadState(globalFlags.statePath)
	if err != nil {
		logrus.WithField("component", "cmd").WithError(err).Warn("ignoring unreadable state file")
	}
	username := firstNonEmpty(cfg.Username, st.Username)
	if username == "" {
		return fmt.Errorf("%w: no username given (use --username or SWEBENCH_USERNAME)", config.ErrInvalidConfig)
	}
	names, err := parseDatasetSelection(analyzeFlags.datasets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	out, err := analyze(ctx, cfg, runOptions{
		Username:   username,
		Datasets:   names,
		Offline:    analyzeFlags.noGithub,
		ClearCache: analyzeFlags.clearCache,
	}, m)
	if err != nil {
		return err
	}

	if err := analysis.WriteFile(cfg.Output, out); err != nil {
		return err
	}
	analysis.PrintSummary(w, out)
	fmt.Fprintf(w, "\nResults written to %s\n", cfg.Output)

	st = config.State{Username: username, LastOutput: cfg.Output, LastRun: time.Now().UTC()}
	if err := config.SaveState(globalFlags.statePath, st); err != nil {
		logrus.WithField("component", "cmd").WithError(err).Warn("could not remember settings")
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logrus.WithField("component", "cmd").WithError(err).Warn("writing metrics failed")
		}
	}
	return nil
}

// analyze wires the cache, fetcher and classifier for one run.
func analyze(ctx context.Context, cfg config.Config, opts runOptions, m *metrics.Manager) (*analysis.Output, error) {
	if !opts.Offline {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}
	sets, err := loadDatasets(cfg, opts.Datasets)
	if err != nil {
		return nil, err
	}

	var respCache *cache.Cache
	if opts.ClearCache || (!opts.Offline && cfg.CacheEnabled) {
		respCache, err = openCache(cfg, m)
		if err != nil {
			return nil, err
		}
		defer respCache.Close()
	}
	if opts.ClearCache {
		if err := respCache.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing cache: %w", err)
		}
		logrus.WithField("component", "cmd").Info("response cache cleared")
	}

	if opts.Offline {
		return analysis.NewAnalyzer(classify.New(opts.Username, nil), analysis.WithMetrics(m)).Run(ctx, sets)
	}

	gh, err := newGithubClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	limiter := ratelimit.New(cfg.GithubRateLimit, ratelimit.WithWaitHook(m.QuotaWait))
	clientOpts := []github.Option{
		github.WithBackoff(ratelimit.Backoff{Attempts: cfg.MaxRetries, Min: cfg.BackoffMin, Max: cfg.BackoffMax}),
		github.WithMetrics(m),
	}
	analyzerOpts := []analysis.Option{analysis.WithMetrics(m)}
	if cfg.CacheEnabled && respCache != nil {
		clientOpts = append(clientOpts, github.WithCache(respCache))
		analyzerOpts = append(analyzerOpts, analysis.WithCache(respCache))
	}
	client := github.NewClient(gh, limiter, clientOpts...)
	if err := client.Prime(ctx); err != nil {
		return nil, err
	}
	analyzerOpts = append(analyzerOpts, analysis.WithRemoteCounter(client))

	return analysis.NewAnalyzer(classify.New(opts.Username, client), analyzerOpts...).Run(ctx, sets)
}

func newGithubClient(ctx context.Context, cfg config.Config) (*gogithub.Client, error) {
	if token := strings.TrimSpace(cfg.GithubToken); token != "" {
		return github.NewTokenClient(ctx, token, cfg.HTTPClientTimeout), nil
	}
	return github.CreateGithubClient(ctx, []byte(cfg.GithubPrivateKey), cfg.GithubClientID, cfg.GithubInstallationID, cfg.HTTPClientTimeout)
}

func openCache(cfg config.Config, m *metrics.Manager) (*cache.Cache, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return cache.New(store,
		cache.WithTTLDays(cfg.CacheExpiryDays),
		cache.WithMemorySize(cfg.CacheMemorySize),
		cache.WithMetrics(m),
	)
}

func openStore(cfg config.Config) (cache.Store, error) {
	if cfg.CacheBackend == config.BackendRedis {
		rdb, err := redis.ConnectToRedisURL(cfg.RedisURL, cfg.RedisConnTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cache.ErrStoreUnavailable, err)
		}
		return redis.NewStore(rdb, redis.DefaultPrefix), nil
	}
	return cache.OpenSQLite(cfg.CacheDir)
}

func loadDatasets(cfg config.Config, names []dataset.Name) ([]dataset.Set, error) {
	sets := make([]dataset.Set, 0, len(names))
	for _, name := range names {
		path := cfg.DatasetFull
		if name == dataset.Verified {
			path = cfg.DatasetVerified
		}
		if path == "" {
			return nil, fmt.Errorf("%w: no file configured for %s (use --full-data/--verified-data or SWEBENCH_DATASET_FULL/SWEBENCH_DATASET_VERIFIED)", dataset.ErrLoad, name)
		}
		set, err := dataset.Load(path, name)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func parseDatasetSelection(s string) ([]dataset.Name, error) {
	if s = strings.TrimSpace(strings.ToLower(s)); s == "" || s == "both" {
		return dataset.All(), nil
	}
	name, err := dataset.ParseName(s)
	if err != nil {
		return nil, err
	}
	return []dataset.Name{name}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

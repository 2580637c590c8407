package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/urizennnn/swebench-contributions/config"
)

var (
	version = "dev"
	commit  = "none"
)

var globalFlags struct {
	logLevel  string
	statePath string
}

var rootCmd = &cobra.Command{
	Use:   "swebench-analyzer",
	Short: "Find SWE-bench instances a GitHub user contributed to",
	Long: "swebench-analyzer checks every instance of SWE-bench and SWE-bench Verified for\n" +
		"issues and pull requests a GitHub user authored, commented on, was assigned to,\n" +
		"or is mentioned in, caching GitHub API responses between runs.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	RunE: runAnalyze,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "swebench-analyzer %s (commit: %s)\n", version, commit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from SWEBENCH_LOG_LEVEL)")
	pf.StringVar(&globalFlags.statePath, "state-file", config.DefaultStatePath(), "file remembering the last username and output")

	registerAnalyzeFlags(rootCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(showCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// loadConfig reads the environment and applies the logging settings.
func loadConfig() (config.Config, error) {
	cfg, err := config.NewLoader(config.DefaultPrefix).Load()
	if err != nil {
		return cfg, err
	}
	if globalFlags.logLevel != "" {
		cfg.LogLevel = globalFlags.logLevel
	}
	return cfg, setupLogging(cfg)
}

func setupLogging(cfg config.Config) error {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const DefaultPrefix = "SWEBENCH"

func NewLoader(prefix string) *Loader {
	v := validator.New()
	return &Loader{Prefix: prefix, Validate: v}
}

func (l *Loader) Load() (Config, error) {
	var cfg Config
	log := logrus.WithField("component", "config")

	if err := loadDotEnv(); err != nil {
		log.Debugf("dotenv: %v", err)
	}
	if err := envconfig.Process(l.Prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: env load: %v", ErrInvalidConfig, err)
	}
	// envconfig only reads the unprefixed name when the prefixed one is unset.
	if strings.TrimSpace(cfg.GithubToken) == "" {
		cfg.GithubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	if err := l.Check(cfg); err != nil {
		return cfg, err
	}

	log.WithFields(logrus.Fields{
		"env":           cfg.Env,
		"cache_backend": cfg.CacheBackend,
		"token_set":     cfg.GithubToken != "",
		"app_set":       cfg.HasAppCredentials(),
	}).Debug("config loaded")
	return cfg, nil
}

// Check validates cfg after flags have been applied on top of the
// environment.
func (l *Loader) Check(cfg Config) error {
	if err := l.Validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) HasAppCredentials() bool {
	return c.GithubPrivateKey != "" && c.GithubClientID != "" && c.GithubInstallationID > 0
}

// RequireCredentials fails unless a token or a complete GitHub App
// installation is configured.
func (c Config) RequireCredentials() error {
	if strings.TrimSpace(c.GithubToken) != "" || c.HasAppCredentials() {
		return nil
	}
	return fmt.Errorf("%w: set GITHUB_TOKEN (or pass --token), or the GitHub App variables, or use --no-github", ErrMissingCredentials)
}

func loadDotEnv() error {
	files := []string{".env"}

	if appEnv := strings.TrimSpace(os.Getenv("APP_ENV")); appEnv != "" {
		files = append(files, ".env."+appEnv)
	}
	if goEnv := strings.TrimSpace(os.Getenv("GO_ENV")); goEnv != "" && goEnv != os.Getenv("APP_ENV") {
		files = append(files, ".env."+goEnv)
	}

	var loadedAny bool
	for _, f := range files {
		if fileExists(f) {
			if err := godotenv.Overload(f); err != nil {
				logrus.WithField("component", "config").Warnf("dotenv: failed loading %s: %v", f, err)
				continue
			}
			loadedAny = true
		}
	}

	if !loadedAny {
		return fmt.Errorf("no .env files found (looked for: %s)", strings.Join(files, ", "))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

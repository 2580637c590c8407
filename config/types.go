package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	// App
	Env       string `split_words:"true" default:"prod" validate:"oneof=dev staging prod"`
	LogLevel  string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `split_words:"true" default:"text" validate:"oneof=text json"`

	// GitHub
	GithubToken          string `envconfig:"GITHUB_TOKEN"`
	GithubPrivateKey     string `envconfig:"APP_GITHUB_PRIVATE_KEY"`
	GithubClientID       string `envconfig:"GITHUB_CLIENT_ID"`
	GithubInstallationID int64  `split_words:"true" validate:"gte=0"`
	Username             string

	// Datasets
	DatasetFull     string `split_words:"true"`
	DatasetVerified string `split_words:"true"`

	// Response cache
	CacheEnabled     bool          `split_words:"true" default:"true"`
	CacheBackend     string        `split_words:"true" default:"sqlite" validate:"oneof=sqlite redis"`
	CacheDir         string        `split_words:"true"`
	CacheExpiryDays  int           `split_words:"true" default:"7" validate:"gt=0"`
	CacheMemorySize  int           `split_words:"true" default:"1000" validate:"gt=0"`
	RedisURL         string        `split_words:"true" validate:"required_if=CacheBackend redis"`
	RedisConnTimeout time.Duration `split_words:"true" default:"3s" validate:"gt=0"`

	// Fetching
	HTTPClientTimeout time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	GithubRateLimit   int           `split_words:"true" default:"0" validate:"gte=0"`
	MaxRetries        int           `split_words:"true" default:"3" validate:"gt=0"`
	BackoffMin        time.Duration `split_words:"true" default:"1s" validate:"gt=0"`
	BackoffMax        time.Duration `split_words:"true" default:"30s" validate:"gt=0,gtefield=BackoffMin"`

	// Output
	Output      string `default:"swebench_contributions.json"`
	MetricsFile string `split_words:"true"`
}

type Loader struct {
	Prefix   string
	Validate *validator.Validate
}

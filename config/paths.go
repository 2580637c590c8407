package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "swebench-analyzer"

// DefaultCacheDir holds GitHub API responses, apart from any dataset cache.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, appName, "github")
}

func DefaultStatePath() string {
	return filepath.Join(xdg.StateHome, appName, "state.yaml")
}

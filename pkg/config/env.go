package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	// ForceRefreshEnv toggles rebuilding the index on every read. Useful in
	// development where source files change under a running process.
	ForceRefreshEnv = "CONDUCTOR_FORCE_REFRESH"

	// HomeEnv overrides the user-global context root (default ~/.conductor).
	HomeEnv = "CONDUCTOR_HOME"
)

func forceRefreshFromEnv() bool {
	v := os.Getenv(ForceRefreshEnv)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// DefaultUserRoot returns the user-global context root.
func DefaultUserRoot() string {
	if root := os.Getenv(HomeEnv); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".conductor")
}

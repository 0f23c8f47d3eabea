package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads credential variables from .env files in dir. When APP_ENV
// is set, .env.$APP_ENV is read first so its values take precedence.
// Variables already present in the environment are never overwritten.
// Missing files are skipped; the files actually loaded are returned.
func LoadEnv(dir string) ([]string, error) {
	candidates := []string{filepath.Join(dir, ".env")}
	if env := os.Getenv("APP_ENV"); env != "" {
		candidates = append([]string{filepath.Join(dir, ".env."+env)}, candidates...)
	}

	var loaded []string
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

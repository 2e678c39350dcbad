package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvFiles are loaded in order. .env never replaces variables already set;
// .env.local replaces anything.
var EnvFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads EnvFiles found in base into the process environment so
// EnvDatabaseURL can be kept out of config.yaml. Missing files are skipped.
func LoadEnvFiles(base string) error {
	for i, name := range EnvFiles {
		path := filepath.Join(base, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		load := godotenv.Load
		if i > 0 {
			load = godotenv.Overload
		}
		if err := load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

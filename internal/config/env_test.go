package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFiles(t *testing.T) {
	tests := []struct {
		name     string
		shell    string
		env      string
		envLocal string
		expected string
	}{
		{name: "no files", shell: "sqlite://shell.db", expected: "sqlite://shell.db"},
		{name: "shell wins over .env", shell: "sqlite://shell.db", env: "sqlite://env.db", expected: "sqlite://shell.db"},
		{name: ".env.local wins", shell: "sqlite://shell.db", env: "sqlite://env.db", envLocal: "sqlite://local.db", expected: "sqlite://local.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv(EnvDatabaseURL, tt.shell)

			if tt.env != "" {
				writeEnv(t, filepath.Join(dir, ".env"), tt.env)
			}
			if tt.envLocal != "" {
				writeEnv(t, filepath.Join(dir, ".env.local"), tt.envLocal)
			}

			if err := LoadEnvFiles(dir); err != nil {
				t.Fatalf("LoadEnvFiles failed: %v", err)
			}
			if got := os.Getenv(EnvDatabaseURL); got != tt.expected {
				t.Errorf("%s = %q, want %q", EnvDatabaseURL, got, tt.expected)
			}
		})
	}
}

func TestLoadEnvFilesFeedsLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, "sqlite://stored.db"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDatabaseURL, "")
	writeEnv(t, filepath.Join(dir, ".env.local"), "sqlite://local.db")

	if err := LoadEnvFiles(dir); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "sqlite://local.db" {
		t.Errorf("DatabaseURL = %q, want value from .env.local", cfg.DatabaseURL)
	}
}

func writeEnv(t *testing.T, path, url string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(EnvDatabaseURL+"="+url+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

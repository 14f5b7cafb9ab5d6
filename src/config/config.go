package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvFileVar points at an alternate .env when none sits next to the
	// executable.
	EnvFileVar = "DASHSHOT_ENV"

	defaultOutputSubdir = "Pictures/dashshot"
)

type Config struct {
	OutputDir         string
	EnableFileLogging bool
	CopyToClipboard   bool
}

// Load reads configuration from sources in priority order:
// 1) .env in the executable's directory
// 2) a file named by DASHSHOT_ENV
// 3) plain environment variables
func Load() (*Config, error) {
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		OutputDir:         resolveOutputDir(),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		CopyToClipboard:   strings.ToLower(os.Getenv("COPY_TO_CLIPBOARD")) == "true",
	}
	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveOutputDir() string {
	if dir := strings.TrimSpace(os.Getenv("OUTPUT_DIR")); dir != "" {
		return expandHome(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultOutputSubdir
	}
	return filepath.Join(home, defaultOutputSubdir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
		}
	}
	return path
}

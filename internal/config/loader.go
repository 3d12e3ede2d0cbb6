package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PLAYER_SANDBOX_FPS.
const EnvPrefix = "PLAYER"

// Load loads the player configuration.
// Search order: customPath -> ~/.player/player.yaml -> ./configs/player.yaml -> embedded default.
// Values missing from a file keep their defaults; environment variables
// override whatever was loaded.
func Load(customPath string) (Config, error) {
	cfg := Default()

	switch {
	case customPath != "":
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}

	case loadOptional(userConfigPath("player.yaml"), &cfg):
	case loadOptional("configs/player.yaml", &cfg):
	default:
		if err := yaml.Unmarshal(defaultPlayerYAML, &cfg); err != nil {
			cfg = Default() // Fallback to hardcoded if embed fails
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadOptional decodes path into cfg if it exists and parses. A broken
// optional file is skipped rather than failing startup.
func loadOptional(path string, cfg *Config) bool {
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	candidate := *cfg
	if err := yaml.Unmarshal(data, &candidate); err != nil {
		return false
	}
	*cfg = candidate
	return true
}

func applyEnv(cfg *Config) error {
	sections := []struct {
		name   string
		target any
	}{
		{"SANDBOX", &cfg.Sandbox},
		{"HOST", &cfg.Host},
		{"STORAGE", &cfg.Storage},
		{"LOG", &cfg.Log},
		{"SSH", &cfg.SSH},
	}
	for _, s := range sections {
		if err := envconfig.Process(EnvPrefix+"_"+s.name, s.target); err != nil {
			return fmt.Errorf("config: environment override %s: %w", s.name, err)
		}
	}
	return nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".player", filename)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the environment variable holding an explicit config file path.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are tried in order when CONFIG_PATH is unset.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Load builds the configuration from defaults, the config file and the
// process environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findFile(os.Getenv(PathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sections are the top-level keys an environment variable may address.
var sections = []string{"server", "database", "auth", "shortlink", "relations", "storage", "logging", "pagination"}

// shortNames are accepted for the settings most often set by hand.
var shortNames = map[string]string{
	"port":                 "server.port",
	"db_path":              "database.path",
	"jwt_secret":           "auth.jwt_secret",
	"github_client_id":     "auth.github_client_id",
	"github_client_secret": "auth.github_client_secret",
	"github_callback_url":  "auth.github_callback_url",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
}

// envTransform maps an environment variable to a koanf key. Variables that
// match no known setting return an empty key and are dropped.
func envTransform(key, value string) (string, any) {
	lower := strings.ToLower(key)

	if path, ok := shortNames[lower]; ok {
		return path, value
	}

	for _, section := range sections {
		if rest, ok := strings.CutPrefix(lower, section+"_"); ok && rest != "" {
			if rest == "cors_origins" {
				return section + "." + rest, splitList(value)
			}
			return section + "." + rest, value
		}
	}
	return "", nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

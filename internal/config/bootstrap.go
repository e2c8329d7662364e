package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the bootstrap environment variables.
const EnvPrefix = "FACEMATCH"

// Bootstrap holds the settings needed before the YAML file can be located.
type Bootstrap struct {
	Env       string `envconfig:"ENV" default:"local"`
	ConfigDir string `envconfig:"CONFIG_DIR" default:"config"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
}

// LoadBootstrap reads FACEMATCH_* variables, loading dotenv files first when present.
func LoadBootstrap(dotenvFiles ...string) (Bootstrap, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Bootstrap{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var b Bootstrap
	if err := envconfig.Process(EnvPrefix, &b); err != nil {
		return Bootstrap{}, fmt.Errorf("read environment: %w", err)
	}
	return b, nil
}

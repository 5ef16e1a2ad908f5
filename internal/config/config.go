package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	CorsConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Cors
	Security
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads variables from the given .env files (default ".env") into the
// process environment. Variables that are already set win. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if fileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

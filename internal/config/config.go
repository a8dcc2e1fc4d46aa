package config

import (
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment.
// RoomKey is the optional shared secret; empty means no key required.
type Config struct {
	Env       string
	Host      string
	Port      string
	RoomKey   string
	CORSAllow []string
	StaticDir string
}

// Load reads .env if present, then the environment, with dev defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:       getEnv("APP_ENV", "dev"),
		Host:      getEnv("HOST", "0.0.0.0"),
		Port:      getEnv("PORT", "8080"),
		RoomKey:   os.Getenv("ROOM_KEY"),
		StaticDir: getEnv("STATIC_DIR", "web"),
	}
	cfg.CORSAllow = splitCSV(getEnv("CORS_ALLOW", "*"))
	return cfg
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

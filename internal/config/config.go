package config

import "os"

type Config struct {
	Addr    string
	DBPath  string
	BaseURL string
}

func Default() Config {
	return Config{
		Addr:    envOr("OPENTUBE_ADDR", "127.0.0.1:8080"),
		DBPath:  envOr("OPENTUBE_DB_PATH", "opentube.db"),
		BaseURL: envOr("OPENTUBE_BASE_URL", ""),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

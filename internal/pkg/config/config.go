package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	SourceLogPath       string        `env:"SOURCE_LOG_PATH" envDefault:"/var/tmp/opencanary.log"`
	JournalPath         string        `env:"JOURNAL_PATH" envDefault:"data/normalized_events.jsonl"`
	RemoteURI           string        `env:"REMOTE_URI"`
	RemoteConfigPath    string        `env:"REMOTE_CONFIG_PATH" envDefault:"remote.yaml"`
	RemoteCollection    string        `env:"REMOTE_COLLECTION" envDefault:"honeypot_events"`
	RemoteTimeout       time.Duration `env:"REMOTE_TIMEOUT" envDefault:"5s"`
	RemoteReconnectRate float64       `env:"REMOTE_RECONNECT_RATE" envDefault:"0"` // attempts/sec, 0 = unlimited
	TailPollInterval    time.Duration `env:"TAIL_POLL_INTERVAL" envDefault:"200ms"`
	SourceWaitInterval  time.Duration `env:"SOURCE_WAIT_INTERVAL" envDefault:"1s"`
	AdminServerAddr     string        `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	FeedBufferSize      int           `env:"FEED_BUFFER_SIZE" envDefault:"1500"`
	FeedAPIKeys         string        `env:"FEED_API_KEYS"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FeedKeys returns the configured feed API keys, ignoring empty entries.
func (c *Config) FeedKeys() []string {
	var keys []string
	for _, k := range strings.Split(c.FeedAPIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

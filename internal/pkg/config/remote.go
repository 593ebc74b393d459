package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrRemoteNotConfigured is returned when neither REMOTE_URI nor the remote
// config file provides a connection string.
var ErrRemoteNotConfigured = errors.New("remote store is not configured")

// RemoteConfig is the typed remote destination loaded once at startup.
type RemoteConfig struct {
	URI        string `yaml:"uri"`
	Collection string `yaml:"collection"`
}

// Scheme returns the lower-cased URI scheme.
func (r RemoteConfig) Scheme() string {
	u, err := url.Parse(r.URI)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// LoadRemote resolves the remote destination. REMOTE_URI wins over the file.
// A missing file yields ErrRemoteNotConfigured; malformed content or a URI
// without scheme and host yields a descriptive error.
func (c *Config) LoadRemote() (RemoteConfig, error) {
	rc := RemoteConfig{URI: strings.TrimSpace(c.RemoteURI)}

	if rc.URI == "" {
		data, err := os.ReadFile(c.RemoteConfigPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return RemoteConfig{}, ErrRemoteNotConfigured
			}
			return RemoteConfig{}, fmt.Errorf("failed to read remote config %s: %w", c.RemoteConfigPath, err)
		}
		if err := yaml.Unmarshal(data, &rc); err != nil {
			return RemoteConfig{}, fmt.Errorf("failed to parse remote config %s: %w", c.RemoteConfigPath, err)
		}
		rc.URI = strings.TrimSpace(rc.URI)
		if rc.URI == "" {
			return RemoteConfig{}, ErrRemoteNotConfigured
		}
	}

	if rc.Collection == "" {
		rc.Collection = c.RemoteCollection
	}

	u, err := url.Parse(rc.URI)
	if err != nil {
		return RemoteConfig{}, fmt.Errorf("invalid remote uri: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return RemoteConfig{}, fmt.Errorf("invalid remote uri: scheme and host are required")
	}
	return rc, nil
}

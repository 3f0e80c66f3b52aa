package httpagent

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	defaultTimeout          = 120 * time.Second
	defaultMaxResponseBytes = 4 << 20
)

// Config holds the HTTP reply module configuration.
type Config struct {
	// URL is the agent endpoint receiving inbound contexts.
	URL string `yaml:"url"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token"`

	// Timeout bounds one dispatch round-trip. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout"`

	// MaxResponseBytes caps the response body. Defaults to 4 MiB.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("httpagent: url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("httpagent: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("httpagent: url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("httpagent: timeout must be non-negative, got %s", c.Timeout)
	}
	return nil
}

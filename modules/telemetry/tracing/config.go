package tracing

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultServiceName = "qqrelay"
	defaultTimeout     = 10 * time.Second
)

// Config holds the tracing configuration.
type Config struct {
	// Endpoint is the OTLP/HTTP collector, either "host:port" or a full
	// URL such as "https://otel.example.com/v1/traces".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS when Endpoint is "host:port".
	Insecure bool `yaml:"insecure"`

	Headers     map[string]string `yaml:"headers"`
	ServiceName string            `yaml:"service_name"`

	// SampleRatio is the fraction of root traces recorded. Defaults to 1.
	SampleRatio *float64 `yaml:"sample_ratio"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.SampleRatio == nil {
		one := 1.0
		c.SampleRatio = &one
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("tracing: endpoint is required")
	}
	if c.isURL() {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("tracing: invalid endpoint URL %q", c.Endpoint)
		}
	}
	if r := *c.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("tracing: sample_ratio must be within [0, 1], got %v", r)
	}
	return nil
}

func (c *Config) isURL() bool {
	return strings.Contains(c.Endpoint, "://")
}

package qq

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/flemzord/qqrelay/internal/reply"
	"github.com/flemzord/qqrelay/internal/router"
)

const (
	defaultHTTPURL      = "http://127.0.0.1:3000"
	defaultWebhookPath  = "/qq/webhook"
	defaultMaxBodyBytes = 1 << 20
	defaultSendTimeout  = 30 * time.Second
)

// Config holds the QQ channel configuration.
type Config struct {
	// HTTPURL is the NapCat OneBot HTTP API base URL.
	HTTPURL string `yaml:"http_url"`

	// AccessToken is sent as a bearer token to NapCat. Optional.
	AccessToken string `yaml:"access_token"`

	// WebhookPath is where NapCat posts events.
	WebhookPath string `yaml:"webhook_path"`

	// SelfID is the bot account id. Falls back to the event's self_id.
	SelfID string `yaml:"self_id"`

	// RequireMention gates group messages on a mention of the bot.
	// Defaults to true for groups and false for private chats.
	RequireMention *bool `yaml:"require_mention"`

	// Enabled turns event handling off without unloading the module.
	Enabled *bool `yaml:"enabled"`

	Routing  router.Routes         `yaml:"routing"`
	Envelope reply.EnvelopeOptions `yaml:"envelope"`

	// MaxBodyBytes bounds the webhook request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// SendTimeout bounds a single NapCat API call.
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	c.HTTPURL = strings.TrimSpace(c.HTTPURL)
	if c.HTTPURL == "" {
		c.HTTPURL = defaultHTTPURL
	}
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.SelfID = strings.TrimSpace(c.SelfID)
	c.WebhookPath = normalizeWebhookPath(c.WebhookPath)
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
}

// validate checks field constraints. It runs after defaults.
func (c *Config) validate() error {
	u, err := url.Parse(c.HTTPURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("qq: http_url must be a valid http/https URL, got %q", c.HTTPURL)
	}
	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("qq: routing: %w", err)
	}
	if err := c.Envelope.Validate(); err != nil {
		return fmt.Errorf("qq: envelope: %w", err)
	}
	return nil
}

func (c *Config) enabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// requireMention resolves the mention gate for a chat type.
func (c *Config) requireMention(isGroup bool) bool {
	if c.RequireMention != nil {
		return *c.RequireMention
	}
	return isGroup
}

// normalizeWebhookPath trims the path and adds a leading "/".
func normalizeWebhookPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultWebhookPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

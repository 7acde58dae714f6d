package settings

import (
	"net/url"
	"strings"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/logging"
)

// Config resolves the server base address: Override if set, else the stored
// value, else apiclient.DefaultBaseURL. It is read again on every call.
type Config struct {
	Store    Store
	Override string
}

func NewConfig(store Store, override string) *Config {
	return &Config{Store: store, Override: strings.TrimSpace(override)}
}

// BaseURL implements apiclient.BaseURLSource.
func (c *Config) BaseURL() string {
	if c.Override != "" {
		return c.Override
	}
	if c.Store == nil {
		return apiclient.DefaultBaseURL
	}
	v, ok, err := c.Store.Get(KeyServerURL)
	if err != nil {
		logging.Warn("read server url setting, using default", map[string]interface{}{"error": err.Error()})
		return apiclient.DefaultBaseURL
	}
	if !ok || strings.TrimSpace(v) == "" {
		return apiclient.DefaultBaseURL
	}
	return v
}

// StoredServerURL returns the persisted value, or "" when none is stored.
func (c *Config) StoredServerURL() (string, error) {
	if c.Store == nil {
		return "", nil
	}
	v, _, err := c.Store.Get(KeyServerURL)
	return v, err
}

// SetServerURL validates and stores a new base address.
func (c *Config) SetServerURL(raw string) (string, error) {
	v, err := NormalizeServerURL(raw)
	if err != nil {
		return "", err
	}
	if c.Store == nil {
		return "", ErrNoStore
	}
	if err := c.Store.Set(KeyServerURL, v); err != nil {
		return "", err
	}
	logging.Info("server url saved", map[string]interface{}{"server_url": v})
	return v, nil
}

// NormalizeServerURL trims raw, requires an absolute http(s) URL and strips
// trailing slashes.
func NormalizeServerURL(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", apperr.EmptyField("server url")
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperr.New(apperr.ErrValidation, "server url must be an absolute http(s) URL")
	}
	return strings.TrimRight(v, "/"), nil
}

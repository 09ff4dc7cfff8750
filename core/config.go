package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultClientName    = "restclient"
	defaultClientTimeout = 30 * time.Second
)

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type Config struct {
	ClientName           string            `koanf:"client_name" mapstructure:"client_name"`
	BaseURL              string            `koanf:"base_url" mapstructure:"base_url"`
	Timeout              time.Duration     `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64             `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	DefaultHeaders       map[string]string `koanf:"default_headers" mapstructure:"default_headers"`
	Workers              int               `koanf:"workers" mapstructure:"workers"`
	CallbackQueueSize    int               `koanf:"callback_queue_size" mapstructure:"callback_queue_size"`
}

func DefaultConfig() Config {
	return Config{
		ClientName:           defaultClientName,
		Timeout:              defaultClientTimeout,
		MaxResponseBodyBytes: defaultResponseBodyLimit,
		DefaultHeaders:       map[string]string{},
		Workers:              defaultPoolWorkers,
		CallbackQueueSize:    defaultCallbackQueueSize,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("core: client_name is required")
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: base_url %q is invalid", base)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("core: timeout must not be negative")
	}
	if c.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: max_response_body_bytes must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("core: workers must not be negative")
	}
	if c.CallbackQueueSize < 0 {
		return fmt.Errorf("core: callback_queue_size must not be negative")
	}
	return nil
}

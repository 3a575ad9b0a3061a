package rcc

import (
	"errors"
	"time"
)

// Default SSH settings for pod node access.
const (
	DefaultUser    = "robot"
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second
)

// Config holds the SSH settings for the command channel.
type Config struct {
	// User is the remote login name.
	User string `yaml:"user"`

	// Port is the SSH port on the target hosts.
	Port int `yaml:"port"`

	// KeyFile is the path to a private key used for public key auth.
	// At least one of KeyFile and Password must be set.
	KeyFile string `yaml:"key_file"`

	// Password enables password auth when set.
	Password string `yaml:"password"`

	// Timeout bounds connection establishment and each payload run.
	Timeout time.Duration `yaml:"timeout"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.User == "" {
		return errors.New("rcc: config: User must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("rcc: config: Port must be between 1 and 65535")
	}
	if c.KeyFile == "" && c.Password == "" {
		return errors.New("rcc: config: one of KeyFile or Password must be set")
	}
	if c.Timeout <= 0 {
		return errors.New("rcc: config: Timeout must be positive")
	}
	return nil
}

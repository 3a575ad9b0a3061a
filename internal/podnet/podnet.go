// Package podnet resolves the HA pod node pair a firewall deployment
// targets. A pod runs two nodes, A and B; exactly one is enabled at any
// time. Deployments run against the enabled node first so a failure never
// leaves the pair split-brained.
package podnet

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/podnetlabs/podfw/internal/rcc"
)

// Config is the pod configuration file.
type Config struct {
	// IPv6Subnet is the pod's management subnet in CIDR form. Node
	// management addresses are derived from its prefix unless overridden.
	IPv6Subnet string `yaml:"ipv6_subnet"`

	// PodnetAEnabled and PodnetBEnabled mark which node currently serves.
	// Exactly one must be true. Both are required fields; a missing value
	// is a config error, not a default.
	PodnetAEnabled *bool `yaml:"podnet_a_enabled"`
	PodnetBEnabled *bool `yaml:"podnet_b_enabled"`

	// PodnetAAddress and PodnetBAddress override the derived management
	// addresses when set.
	PodnetAAddress string `yaml:"podnet_a_address"`
	PodnetBAddress string `yaml:"podnet_b_address"`

	// SSH configures the command channel to both nodes.
	SSH rcc.Config `yaml:"ssh"`
}

// Pair is the ordered deployment target: Enabled is always acted on first.
type Pair struct {
	Enabled  string
	Disabled string
}

// Parse reads a YAML pod configuration file, applies defaults and
// validates it.
func Parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("podnet: config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("podnet: config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.SSH.ApplyDefaults()
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.IPv6Subnet == "" && (c.PodnetAAddress == "" || c.PodnetBAddress == "") {
		return errors.New("podnet: config: ipv6_subnet is required unless both node addresses are set")
	}
	if c.IPv6Subnet != "" {
		if _, err := netip.ParsePrefix(c.IPv6Subnet); err != nil {
			return fmt.Errorf("podnet: config: invalid ipv6_subnet %q: %w", c.IPv6Subnet, err)
		}
	}
	if c.PodnetAEnabled == nil {
		return errors.New("podnet: config: podnet_a_enabled is required")
	}
	if c.PodnetBEnabled == nil {
		return errors.New("podnet: config: podnet_b_enabled is required")
	}
	if err := c.SSH.Validate(); err != nil {
		return err
	}
	return nil
}

// Pair returns the ordered (enabled, disabled) node addresses. Both nodes
// enabled and both disabled are errors: either state means the pod's HA
// invariant is already broken and nothing should be deployed to it.
func (c *Config) Pair() (Pair, error) {
	a, b := c.nodeAddresses()

	aEnabled := c.PodnetAEnabled != nil && *c.PodnetAEnabled
	bEnabled := c.PodnetBEnabled != nil && *c.PodnetBEnabled
	switch {
	case aEnabled && !bEnabled:
		return Pair{Enabled: a, Disabled: b}, nil
	case !aEnabled && bEnabled:
		return Pair{Enabled: b, Disabled: a}, nil
	case aEnabled && bEnabled:
		return Pair{}, errors.New("podnet: both nodes are enabled")
	default:
		return Pair{}, errors.New("podnet: both nodes are disabled")
	}
}

// nodeAddresses returns the management addresses of nodes A and B, derived
// from the subnet prefix with the fixed host suffixes 10:0:2 and 10:0:3.
func (c *Config) nodeAddresses() (a, b string) {
	prefix, _, _ := strings.Cut(c.IPv6Subnet, "/")
	a = c.PodnetAAddress
	if a == "" {
		a = prefix + "10:0:2"
	}
	b = c.PodnetBAddress
	if b == "" {
		b = prefix + "10:0:3"
	}
	return a, b
}

// Package config loads and validates toolbridge settings.
//
// Configuration is a YAML document describing the downstream tool servers to
// bridge, optional allow/block filtering of the qualified tool names, and the
// execution limits applied to every program run. Validation happens at load
// time; the bridge and engine consume an already-validated Config and never
// re-check these invariants.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration indicates an invalid or incomplete configuration.
// All validation failures wrap this sentinel.
var ErrConfiguration = errors.New("configuration error")

// Transport kinds for downstream servers.
const (
	// TransportProcess spawns a subprocess and speaks the protocol over
	// its standard streams.
	TransportProcess = "process"

	// TransportStream connects to a URL and speaks the protocol over a
	// streamable HTTP channel.
	TransportStream = "stream"
)

// Default execution limits.
const (
	DefaultTimeout        = 120 * time.Second
	DefaultMaxOutputBytes = 65536
)

// ServerSpec describes one downstream tool server.
type ServerSpec struct {
	// Name is the unique, human-assigned server name. It becomes part of
	// every qualified tool name exposed by the bridge.
	Name string `yaml:"name"`

	// Transport selects how the server is reached: TransportProcess or
	// TransportStream. Defaults to TransportProcess.
	Transport string `yaml:"transport"`

	// Command and Args launch the subprocess for process transport.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`

	// Env holds extra environment variables for the subprocess.
	Env map[string]string `yaml:"env"`

	// URL is the endpoint for stream transport.
	URL string `yaml:"url"`
}

// ToolFilter restricts which qualified tool names the bridge registers.
// At most one of Allow and Block may be non-empty.
type ToolFilter struct {
	Allow []string `yaml:"allow"`
	Block []string `yaml:"block"`
}

// Allows reports whether a qualified tool name passes the filter.
// A non-empty Allow list admits exactly its members; otherwise a non-empty
// Block list rejects exactly its members; otherwise everything passes.
func (f ToolFilter) Allows(name string) bool {
	if len(f.Allow) > 0 {
		for _, n := range f.Allow {
			if n == name {
				return true
			}
		}
		return false
	}
	for _, n := range f.Block {
		if n == name {
			return false
		}
	}
	return true
}

// Duration is a time.Duration that unmarshals from YAML duration strings
// ("90s", "2m") or bare integers interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrConfiguration, value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrConfiguration, s)
	}
	*d = Duration(parsed)
	return nil
}

// ExecutionLimits bounds a single program execution.
type ExecutionLimits struct {
	// Timeout is the wall-clock deadline for one execution.
	Timeout Duration `yaml:"timeout"`

	// MaxOutputBytes caps the captured output size; longer output is
	// truncated with a marker.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// TimeoutDuration returns the timeout as a time.Duration.
func (l ExecutionLimits) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout)
}

// Config is the top-level validated configuration.
type Config struct {
	Servers   []ServerSpec    `yaml:"servers"`
	Tools     ToolFilter      `yaml:"tools"`
	Execution ExecutionLimits `yaml:"execution"`
}

// Default returns a configuration with no servers and default limits.
func Default() *Config {
	return &Config{
		Execution: ExecutionLimits{
			Timeout:        Duration(DefaultTimeout),
			MaxOutputBytes: DefaultMaxOutputBytes,
		},
	}
}

// Load reads, parses, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued optional fields.
func (c *Config) applyDefaults() {
	if c.Execution.Timeout == 0 {
		c.Execution.Timeout = Duration(DefaultTimeout)
	}
	if c.Execution.MaxOutputBytes == 0 {
		c.Execution.MaxOutputBytes = DefaultMaxOutputBytes
	}
	for i := range c.Servers {
		if c.Servers[i].Transport == "" {
			c.Servers[i].Transport = TransportProcess
		}
	}
}

// Validate checks the configuration invariants. All violations wrap
// ErrConfiguration.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("%w: server name is required", ErrConfiguration)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate server name %q", ErrConfiguration, s.Name)
		}
		seen[s.Name] = true

		switch s.Transport {
		case TransportProcess:
			if s.Command == "" {
				return fmt.Errorf("%w: server %q: process transport requires 'command'",
					ErrConfiguration, s.Name)
			}
		case TransportStream:
			if s.URL == "" {
				return fmt.Errorf("%w: server %q: stream transport requires 'url'",
					ErrConfiguration, s.Name)
			}
		default:
			return fmt.Errorf("%w: server %q: unknown transport %q",
				ErrConfiguration, s.Name, s.Transport)
		}
	}

	if len(c.Tools.Allow) > 0 && len(c.Tools.Block) > 0 {
		return fmt.Errorf("%w: 'allow' and 'block' are mutually exclusive", ErrConfiguration)
	}
	if c.Execution.MaxOutputBytes < 0 {
		return fmt.Errorf("%w: max_output_bytes must be >= 0", ErrConfiguration)
	}
	if c.Execution.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", ErrConfiguration)
	}
	return nil
}

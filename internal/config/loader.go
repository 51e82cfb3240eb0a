package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML configuration, resolving params_env entries with lookup.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := resolveEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveEnv appends params_env values to each endpoint's params.
func resolveEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for i, e := range cfg.Endpoints {
		for _, p := range e.ParamsEnv {
			value, ok := lookup(p.Value)
			if !ok || value == "" {
				return fmt.Errorf("endpoint %q: environment variable %s for param %q is not set", e.Name, p.Value, p.Name)
			}
			cfg.Endpoints[i].Params = append(cfg.Endpoints[i].Params, QueryParams{{Name: p.Name, Value: value}}...)
		}
	}
	return nil
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if len(cfg.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	seen := make(map[string]bool, len(cfg.Endpoints))
	for i, e := range cfg.Endpoints {
		if e.Name == "" {
			return fmt.Errorf("endpoint[%d]: name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("endpoint[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true

		if e.URL == "" {
			return fmt.Errorf("endpoint[%d]: url is required", i)
		}
		u, err := url.Parse(e.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("endpoint[%d]: url %q must be absolute", i, e.URL)
		}

		switch e.Decode {
		case "":
			cfg.Endpoints[i].Decode = DecodeText
		case DecodeText, DecodeJSON:
		default:
			return fmt.Errorf("endpoint[%d]: decode must be %q or %q", i, DecodeText, DecodeJSON)
		}

		if e.Select != "" && cfg.Endpoints[i].Decode != DecodeJSON {
			return fmt.Errorf("endpoint[%d]: select requires decode: json", i)
		}
	}

	switch cfg.Client.Protocol {
	case "":
		cfg.Client.Protocol = ProtocolHTTP
	case ProtocolHTTP, ProtocolHTTP2:
	default:
		return fmt.Errorf("client.protocol must be %q or %q", ProtocolHTTP, ProtocolHTTP2)
	}

	if cfg.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}

	if cfg.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	if cfg.Worker.Rate < 0 {
		return fmt.Errorf("worker.rate must not be negative")
	}

	return nil
}

// Select returns the endpoints matching names, or all endpoints if names is empty.
func (c *Config) Select(names []string) ([]Endpoint, error) {
	if len(names) == 0 {
		return c.Endpoints, nil
	}

	byName := make(map[string]Endpoint, len(c.Endpoints))
	for _, e := range c.Endpoints {
		byName[e.Name] = e
	}

	selected := make([]Endpoint, 0, len(names))
	for _, name := range names {
		e, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown endpoint %q", name)
		}
		selected = append(selected, e)
	}
	return selected, nil
}

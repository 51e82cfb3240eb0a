package config

import (
	"fmt"
	"time"

	"github.com/apifetch/pkg/fetch"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Client    Client     `yaml:"client"`
	Worker    Worker     `yaml:"worker"`
	Metrics   Metrics    `yaml:"metrics"`
	Log       Log        `yaml:"log"`
	Endpoints []Endpoint `yaml:"endpoints"`
}

// Endpoint defines a single API endpoint to fetch.
type Endpoint struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Params  QueryParams       `yaml:"params,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	// ParamsEnv maps a query parameter name to the environment variable
	// holding its value. Used for API keys.
	ParamsEnv QueryParams `yaml:"params_env,omitempty"`
	Decode    Decode      `yaml:"decode"`
	Select    string      `yaml:"select,omitempty"`
}

// Request builds the fetch request for the endpoint.
func (e Endpoint) Request() *fetch.Request {
	return &fetch.Request{
		URL:        e.URL,
		Params:     e.Params.Params(),
		Headers:    e.Headers,
		DecodeJSON: e.Decode == DecodeJSON,
	}
}

// Decode selects how a successful body is interpreted.
type Decode string

const (
	DecodeText Decode = "text"
	DecodeJSON Decode = "json"
)

// Protocol represents the supported protocols.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTP2 Protocol = "http2"
)

// Client configures the HTTP client.
type Client struct {
	Protocol    Protocol      `yaml:"protocol"`
	Timeout     time.Duration `yaml:"timeout"` // 0 = no timeout
	UserAgent   string        `yaml:"user_agent"`
	TLSInsecure bool          `yaml:"tls_insecure"`
}

// ClientConfig converts to the fetch client configuration.
func (c Client) ClientConfig() fetch.ClientConfig {
	return fetch.ClientConfig{
		Timeout:     c.Timeout,
		UserAgent:   c.UserAgent,
		TLSInsecure: c.TLSInsecure,
	}
}

// NewClient creates the fetch client for the configured protocol.
func (c Client) NewClient() fetch.Client {
	if c.Protocol == ProtocolHTTP2 {
		return fetch.NewHTTP2Client(c.ClientConfig())
	}
	return fetch.NewHTTPClient(c.ClientConfig())
}

// Worker configures the batch runner.
type Worker struct {
	Concurrency int     `yaml:"concurrency"`
	Rate        float64 `yaml:"rate"` // requests per second, 0 = unlimited
	StopOnError bool    `yaml:"stop_on_error"`
}

// Metrics configures Prometheus metrics output.
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// QueryParams is an ordered YAML mapping of query parameters.
type QueryParams fetch.Params

// UnmarshalYAML decodes a mapping node while keeping key order.
func (q *QueryParams) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", node.Line)
	}

	params := make(QueryParams, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: param %q must be a scalar", value.Line, key.Value)
		}
		params = append(params, fetch.Param{Name: key.Value, Value: value.Value})
	}

	*q = params
	return nil
}

// Params returns the parameters as fetch.Params.
func (q QueryParams) Params() fetch.Params {
	return fetch.Params(q)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Client: Client{
			Protocol:  ProtocolHTTP,
			UserAgent: "apifetch",
		},
		Worker: Worker{
			Concurrency: 1,
			StopOnError: true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

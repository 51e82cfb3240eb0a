// Package fetch performs single HTTP GET requests and reports the result.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Param is a single query-string parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of query-string parameters.
type Params []Param

// ParamsFromMap converts a map into Params sorted by name.
func ParamsFromMap(m map[string]string) Params {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make(Params, 0, len(names))
	for _, name := range names {
		params = append(params, Param{Name: name, Value: m[name]})
	}
	return params
}

// Encode returns the URL-encoded query string, keeping parameter order.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, param := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(param.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(param.Value))
	}
	return sb.String()
}

// Request describes a single GET request.
type Request struct {
	URL        string
	Params     Params
	Headers    map[string]string
	DecodeJSON bool
}

// Target returns the full request URL with the encoded query string appended.
func (r *Request) Target() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, r.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, r.URL)
	}

	if len(r.Params) == 0 {
		return r.URL, nil
	}

	encoded := r.Params.Encode()
	if u.RawQuery != "" && !strings.HasSuffix(u.RawQuery, "&") {
		u.RawQuery += "&" + encoded
	} else {
		u.RawQuery += encoded
	}
	return u.String(), nil
}

// Response is the outcome of a successful fetch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Payload holds the decoded JSON body. It is only set for status 200
	// when JSON decoding was requested.
	Payload any
	// Decoded reports whether the body was decoded as JSON. A JSON null
	// body leaves Payload nil with Decoded set.
	Decoded  bool
	Duration time.Duration
}

// Text returns the raw body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Client is the interface for fetch implementations.
type Client interface {
	// Fetch issues one GET request and returns the response.
	Fetch(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the client.
	Close() error
}

// ClientConfig contains configuration shared by all clients.
type ClientConfig struct {
	// Timeout bounds the whole request. Zero means no timeout.
	Timeout     time.Duration
	UserAgent   string
	TLSInsecure bool
}

var defaultClient = NewHTTPClient(ClientConfig{})

// Fetch issues a GET to rawURL with params using a default HTTP/1.1 client
// and decodes the body as JSON.
func Fetch(ctx context.Context, rawURL string, params Params) (*Response, error) {
	return defaultClient.Fetch(ctx, &Request{
		URL:        rawURL,
		Params:     params,
		DecodeJSON: true,
	})
}

package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// HTTPClient implements Client for HTTP/1.1 and HTTP/2.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	bufPool   sync.Pool
}

// NewHTTPClient creates a new HTTP/1.1 client.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.TLSInsecure,
	}

	return newHTTPClient(cfg, transport)
}

// NewHTTP2Client creates a new HTTP/2 client. Plain http:// targets are
// spoken to with cleartext HTTP/2 (h2c).
func NewHTTP2Client(cfg ClientConfig) *HTTPClient {
	transport := &h2Transport{
		tls: &http2.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSInsecure,
			},
		},
		cleartext: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}

	return newHTTPClient(cfg, transport)
}

func newHTTPClient(cfg ClientConfig, transport http.RoundTripper) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		bufPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 32*1024)
				return &buf
			},
		},
	}
}

// Fetch executes a single GET request.
func (c *HTTPClient) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target, err := req.Target()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	bufPtr := c.bufPool.Get().(*[]byte)
	defer c.bufPool.Put(bufPtr)

	var body bytes.Buffer
	if _, err := io.CopyBuffer(&body, httpResp.Body, *bufPtr); err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			URL:        target,
			Body:       body.Bytes(),
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body.Bytes(),
		Duration:   time.Since(start),
	}

	if req.DecodeJSON {
		if err := json.Unmarshal(resp.Body, &resp.Payload); err != nil {
			return nil, &DecodeError{URL: target, Err: err}
		}
		resp.Decoded = true
	}

	return resp, nil
}

// Close releases resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// h2Transport picks the TLS or cleartext HTTP/2 transport by URL scheme.
type h2Transport struct {
	tls       *http2.Transport
	cleartext *http2.Transport
}

func (t *h2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return t.cleartext.RoundTrip(req)
	}
	return t.tls.RoundTrip(req)
}

func (t *h2Transport) CloseIdleConnections() {
	t.tls.CloseIdleConnections()
	t.cleartext.CloseIdleConnections()
}

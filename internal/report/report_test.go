package report

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/apifetch/pkg/fetch"
	"github.com/stretchr/testify/assert"
)

func TestResponseJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{})

	resp := &fetch.Response{
		StatusCode: 200,
		Body:       []byte(`{"base":"USD","rates":{"BRL":5.0}}`),
		Payload:    map[string]any{"base": "USD", "rates": map[string]any{"BRL": 5.0}},
		Decoded:    true,
	}
	assert.NoError(t, p.Response(resp, 5.0))

	assert.Equal(t, strings.Join([]string{
		"Status Code: 200",
		`JSON DATA: {"base":"USD","rates":{"BRL":5}}`,
		"Selected: 5",
		"",
	}, "\n"), buf.String())
}

func TestResponseTextWithHeaders(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Headers: true})

	resp := &fetch.Response{
		StatusCode: 200,
		Header: http.Header{
			"Content-Type": {"text/html"},
			"Set-Cookie":   {"a=1", "b=2"},
		},
		Body: []byte("<html></html>"),
	}
	assert.NoError(t, p.Response(resp))

	assert.Equal(t, strings.Join([]string{
		"Status Code: 200",
		"Headers: ",
		"  Content-Type: text/html",
		"  Set-Cookie: a=1, b=2",
		"Content: <html></html>",
		"",
	}, "\n"), buf.String())
}

func TestResponseJSONNull(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{})

	resp := &fetch.Response{StatusCode: 200, Body: []byte("null"), Decoded: true}
	assert.NoError(t, p.Response(resp, nil))

	assert.Equal(t, "Status Code: 200\nJSON DATA: null\nSelected: null\n", buf.String())
}

func TestFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{})

	p.Failure(&fetch.StatusError{StatusCode: 500, URL: "http://x.io"})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Status Code: 500\n"))
	assert.Contains(t, out, CrossMark+" request failed: GET http://x.io: status 500")

	buf.Reset()
	p.Failure(&fetch.TransportError{URL: "http://x.io", Err: assert.AnError})
	assert.NotContains(t, buf.String(), "Status Code")
}

func TestSummary(t *testing.T) {
	s := NewSummary()
	s.Add(10*time.Millisecond, nil)
	s.Add(20*time.Millisecond, nil)
	s.Add(400*time.Millisecond, assert.AnError)
	s.Skip()

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.InDelta(t, float64(400*time.Millisecond), float64(s.Max()), float64(time.Millisecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(s.Percentile(50)), float64(time.Millisecond))

	var buf bytes.Buffer
	s.Write(&buf)
	out := buf.String()
	assert.Contains(t, out, "1 of 4 fetches failed")
	assert.Contains(t, out, "Fetched: 2 ok, 1 failed, 1 skipped")
	assert.Contains(t, out, "Latency: p50 20ms")
}

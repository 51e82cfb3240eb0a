package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsEncode(t *testing.T) {
	testCases := []struct {
		name     string
		params   Params
		expected string
	}{
		{
			name:     "empty",
			params:   nil,
			expected: "",
		},
		{
			name:     "keeps order",
			params:   Params{{"symbols", "BRL"}, {"base", "USD"}},
			expected: "symbols=BRL&base=USD",
		},
		{
			name:     "escapes reserved characters",
			params:   Params{{"q", "a b&c=d"}, {"k/x", "é"}},
			expected: "q=a+b%26c%3Dd&k%2Fx=%C3%A9",
		},
		{
			name:     "empty value",
			params:   Params{{"flag", ""}},
			expected: "flag=",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := tc.params.Encode()
			assert.Equal(t, tc.expected, first)
			assert.Equal(t, first, tc.params.Encode())
		})
	}
}

func TestParamsFromMap(t *testing.T) {
	params := ParamsFromMap(map[string]string{"symbols": "BRL", "base": "USD"})
	assert.Equal(t, Params{{"base", "USD"}, {"symbols", "BRL"}}, params)
	assert.Equal(t, "base=USD&symbols=BRL", params.Encode())
}

func TestRequestTarget(t *testing.T) {
	testCases := []struct {
		url      string
		params   Params
		expected string
		invalid  bool
	}{
		{
			url:      "https://api.exchangeratesapi.io/latest",
			params:   Params{{"base", "USD"}, {"symbols", "BRL"}},
			expected: "https://api.exchangeratesapi.io/latest?base=USD&symbols=BRL",
		},
		{
			url:      "https://api.nomics.com/v1/currencies/ticker?key=abc",
			params:   Params{{"ids", "BTC"}},
			expected: "https://api.nomics.com/v1/currencies/ticker?key=abc&ids=BTC",
		},
		{
			url:      "https://api.example.com/latest#rates",
			params:   Params{{"base", "USD"}},
			expected: "https://api.example.com/latest?base=USD#rates",
		},
		{
			url:      "https://api.example.com/latest?symbols=BRL#rates",
			params:   Params{{"base", "USD"}},
			expected: "https://api.example.com/latest?symbols=BRL&base=USD#rates",
		},
		{
			url:      "https://api.example.com/latest?",
			params:   Params{{"base", "USD"}},
			expected: "https://api.example.com/latest?base=USD",
		},
		{
			url:      "http://www.google.com",
			expected: "http://www.google.com",
		},
		{
			url:     "/relative/path",
			invalid: true,
		},
		{
			url:     "://bad",
			invalid: true,
		},
	}

	for _, tc := range testCases {
		req := &Request{URL: tc.url, Params: tc.params}
		target, err := req.Target()
		if tc.invalid {
			assert.ErrorIs(t, err, ErrInvalidURL, tc.url)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.expected, target)
	}
}

func TestFetchDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"BRL":5.0}}`))
	}))
	defer srv.Close()

	resp, err := Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"base":  "USD",
		"rates": map[string]any{"BRL": 5.0},
	}, resp.Payload)
}

func TestFetchJSONNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	resp, err := Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.True(t, resp.Decoded)
	assert.Nil(t, resp.Payload)
}

func TestFetchSendsQueryString(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL+"/latest", Params{{"base", "USD"}, {"symbols", "BRL"}})
	require.NoError(t, err)
	assert.Equal(t, "base=USD&symbols=BRL", gotQuery)
}

func TestFetchTextWithoutDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewHTTPClient(ClientConfig{})
	defer client.Close()

	resp, err := client.Fetch(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "<html>not json</html>", resp.Text())
	assert.Nil(t, resp.Payload)
	assert.False(t, resp.Decoded)
}

func TestFetchNonOKStatus(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusNotFound, http.StatusCreated, http.StatusNoContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		resp, err := Fetch(context.Background(), srv.URL, nil)
		srv.Close()

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrRequestFailed)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, code, se.StatusCode)

		got, ok := StatusCode(err)
		assert.True(t, ok)
		assert.Equal(t, code, got)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{broken"))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, nil)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
	assert.False(t, errors.Is(err, ErrRequestFailed))
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Fetch(context.Background(), url, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.NotNil(t, errors.Unwrap(err))
	_, ok := StatusCode(err)
	assert.False(t, ok)
}

func TestFetchSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apifetch-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Demo"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewHTTPClient(ClientConfig{UserAgent: "apifetch-test"})
	defer client.Close()

	_, err := client.Fetch(context.Background(), &Request{
		URL:     srv.URL,
		Headers: map[string]string{"X-Demo": "yes"},
	})
	require.NoError(t, err)
}

func TestHTTP2Client(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, 2, r.ProtoMajor)
		w.Write([]byte(`{"proto":2}`))
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	client := NewHTTP2Client(ClientConfig{TLSInsecure: true})
	defer client.Close()

	resp, err := client.Fetch(context.Background(), &Request{URL: srv.URL, DecodeJSON: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"proto": 2.0}, resp.Payload)
}

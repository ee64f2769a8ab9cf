package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRestyPoster_Post(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p := NewRestyPoster(&TransportConfig{Timeout: 5 * time.Second}, zap.NewNop())
	status, body, err := p.Post(context.Background(), server.URL+"/safes/", []string{
		"Accept: application/json",
		"Content-Type: application/json",
	}, []byte(`{"nonce":"1"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, `{"nonce":"1"}`, string(gotBody))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
}

func TestRestyPoster_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"nonce":["Nonce too low"]}`))
	}))
	defer server.Close()

	p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
	status, body, err := p.Post(context.Background(), server.URL, nil, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, `{"nonce":["Nonce too low"]}`, string(body))
}

func TestRestyPoster_NoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
	status, _, err := p.Post(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, 1, calls)
}

func TestRestyPoster_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
	_, _, err := p.Post(context.Background(), url, nil, []byte(`{}`))
	assert.ErrorIs(t, err, ErrTransportFailure)
}

func TestRestyPoster_MalformedHeader(t *testing.T) {
	p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
	_, _, err := p.Post(context.Background(), "http://127.0.0.1:1", []string{"no-colon"}, nil)
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, _, err = p.Post(context.Background(), "http://127.0.0.1:1", []string{": value"}, nil)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRestyPoster_NilBody(t *testing.T) {
	calls := 0
	var gotBody []byte
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
	status, _, err := p.Post(context.Background(), server.URL, []string{"Accept: application/json"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Empty(t, gotBody)
}

func TestRestyPoster_UserAgent(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
	}{
		{name: "default is not sent", headers: nil, want: ""},
		{name: "caller value is kept", headers: []string{"User-Agent: safe-proposer"}, want: "safe-proposer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent bool
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sent = r.Header["User-Agent"]
				got = r.UserAgent()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			p := NewRestyPoster(&TransportConfig{}, zap.NewNop())
			_, _, err := p.Post(context.Background(), server.URL, tt.headers, []byte(`{}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != "", sent)
		})
	}
}

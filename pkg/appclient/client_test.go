package appclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNavigator struct {
	urls []string
}

func (n *recordingNavigator) Navigate(url string) { n.urls = append(n.urls, url) }

func TestDoReturnsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	nav := &recordingNavigator{}
	client := New(srv.Client(), nav)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	result, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	data, ok := result.(Data)
	require.True(t, ok, "expected a Data result, got %T", result)
	assert.Equal(t, http.StatusCreated, data.Status)
	assert.Equal(t, `{"ok":true}`, string(data.Body))
	assert.Equal(t, "application/json", data.Header.Get("Content-Type"))
	assert.Empty(t, nav.urls, "no navigation on an ordinary response")
}

func TestDoNavigatesOnReauthorizationSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ReauthorizeHeader, "1")
		w.Header().Set(ReauthorizeURLHeader, "/auth?shop=acme.myshopify.com")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	nav := &recordingNavigator{}
	client := New(srv.Client(), nav)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/graphql", nil)
	require.NoError(t, err)

	result, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	aborted, ok := result.(ReauthorizationRequired)
	require.True(t, ok, "expected a ReauthorizationRequired result, got %T", result)
	assert.Equal(t, "/auth?shop=acme.myshopify.com", aborted.URL)
	assert.Equal(t, []string{"/auth?shop=acme.myshopify.com"}, nav.urls)
}

func TestDoFallsBackToDefaultAuthPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ReauthorizeHeader, "1")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	nav := &recordingNavigator{}
	client := New(srv.Client(), nav)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	result, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	aborted, ok := result.(ReauthorizationRequired)
	require.True(t, ok)
	assert.Equal(t, DefaultAuthPath, aborted.URL)
	assert.Equal(t, []string{DefaultAuthPath}, nav.urls)
}

func TestDoIgnoresSignalHeaderOtherValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ReauthorizeHeader, "0")
		w.Write([]byte("body"))
	}))
	defer srv.Close()

	nav := &recordingNavigator{}
	client := New(srv.Client(), nav)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	result, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	_, ok := result.(Data)
	assert.True(t, ok)
	assert.Empty(t, nav.urls)
}

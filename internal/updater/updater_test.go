package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func checker(url, current string) *Checker {
	return &Checker{URL: url, Client: http.DefaultClient, CurrentVersion: current}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		tag       string
		available bool
		latest    string
	}{
		{name: "newer patch", current: "9.1.0", tag: "9.1.1", available: true, latest: "9.1.1"},
		{name: "newer major with prefix", current: "v8.4.2", tag: "v9.0.0", available: true, latest: "9.0.0"},
		{name: "same", current: "9.1.0", tag: "v9.1.0", available: false, latest: "9.1.0"},
		{name: "older release", current: "9.2.0", tag: "9.1.9", available: false, latest: "9.1.9"},
		{name: "dev build", current: "dev", tag: "9.1.0", available: true, latest: "9.1.0"},
		{name: "minor beats patch", current: "9.1.10", tag: "9.2.0", available: true, latest: "9.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := releaseServer(t, http.StatusOK, `{"tag_name": "`+tt.tag+`", "html_url": "https://example.test/r"}`)
			res, err := checker(srv.URL, tt.current).Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.available, res.Available)
			assert.Equal(t, tt.latest, res.LatestVersion)
			assert.Equal(t, tt.current, res.CurrentVersion)
			assert.Equal(t, "https://example.test/r", res.ReleaseURL)
		})
	}
}

func TestCheckNoReleases(t *testing.T) {
	srv := releaseServer(t, http.StatusNotFound, "")
	res, err := checker(srv.URL, "1.0.0").Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestCheckErrors(t *testing.T) {
	srv := releaseServer(t, http.StatusInternalServerError, "")
	_, err := checker(srv.URL, "1.0.0").Check(context.Background())
	assert.Error(t, err)

	srv = releaseServer(t, http.StatusOK, `{"tag_name": "nightly"}`)
	_, err = checker(srv.URL, "1.0.0").Check(context.Background())
	assert.Error(t, err)

	srv = releaseServer(t, http.StatusOK, `not json`)
	_, err = checker(srv.URL, "1.0.0").Check(context.Background())
	assert.Error(t, err)
}

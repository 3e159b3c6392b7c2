package sites

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soyeahso/cpbot/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// serve starts a server answering each path with the given body. Unknown
// paths get a 404.
func serve(t *testing.T, routes map[string][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher(site string, followRedirects bool) *Fetcher {
	return NewFetcher(site, FetcherConfig{FollowRedirects: followRedirects}, testLog(), nil)
}

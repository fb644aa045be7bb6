package adapters

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
)

func testDeps() Deps {
	cfg := resilience.DefaultClientConfig()
	cfg.Timeout = 2 * time.Second
	return Deps{Client: resilience.NewClient(cfg, nil, nil)}
}

// breakerDeps is testDeps with endpoint breakers enabled and a low threshold
func breakerDeps() Deps {
	cfg := resilience.DefaultClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.Breaker.Enabled = true
	cfg.Breaker.FailureThreshold = 2
	cfg.Breaker.RecoveryTimeout = time.Minute
	return Deps{Client: resilience.NewClient(cfg, nil, nil)}
}

type route struct {
	status int
	body   string
}

// fakeProvider serves canned responses by path and counts hits
func fakeProvider(t *testing.T, routes map[string]route) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.status)
		w.Write([]byte(rt.body))
	}))
	t.Cleanup(server.Close)

	return server, &hits
}

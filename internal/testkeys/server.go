package testkeys

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// JWKSServer fakes the backend API's /{version}/jwks endpoint.
type JWKSServer struct {
	*httptest.Server

	secret string
	hits   atomic.Int64

	mu           sync.Mutex
	payload      []byte
	status       int
	delay        time.Duration
	cacheControl string
}

// NewJWKSServer serves keys to requests bearing secret. It is closed when
// the test ends.
func NewJWKSServer(t testing.TB, secret string, keys ...*Key) *JWKSServer {
	t.Helper()
	s := &JWKSServer{secret: secret, status: http.StatusOK}
	s.SetKeys(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *JWKSServer) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	payload, status, delay, cacheControl := s.payload, s.status, s.delay, s.cacheControl
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if !strings.HasSuffix(r.URL.Path, "/jwks") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+s.secret {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	_, _ = w.Write(payload)
}

// Hits returns the number of requests served.
func (s *JWKSServer) Hits() int {
	return int(s.hits.Load())
}

// SetKeys replaces the published key set.
func (s *JWKSServer) SetKeys(t testing.TB, keys ...*Key) {
	t.Helper()
	payload, err := json.Marshal(Set(t, keys...))
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	s.mu.Lock()
	s.payload = payload
	s.mu.Unlock()
}

// SetRawPayload publishes body verbatim.
func (s *JWKSServer) SetRawPayload(body string) {
	s.mu.Lock()
	s.payload = []byte(body)
	s.mu.Unlock()
}

// SetStatus makes authorized requests fail with code.
func (s *JWKSServer) SetStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

// SetDelay delays every response.
func (s *JWKSServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// SetCacheControl sets the Cache-Control response header.
func (s *JWKSServer) SetCacheControl(v string) {
	s.mu.Lock()
	s.cacheControl = v
	s.mu.Unlock()
}

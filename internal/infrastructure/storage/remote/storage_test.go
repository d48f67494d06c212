package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/storage/localfs"
)

func newLocal(t *testing.T) *localfs.Storage {
	t.Helper()
	local, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	return local
}

func TestOpenFetchesURLKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/protocol.txt" {
			_, _ = io.WriteString(w, "remote protocol")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := Wrap(newLocal(t), Options{AllowPrivateNetworks: true})
	ctx := context.Background()

	rc, err := s.Open(ctx, srv.URL+"/protocol.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	if string(raw) != "remote protocol" {
		t.Fatalf("Open() = %q", raw)
	}

	if _, err := s.Open(ctx, srv.URL+"/missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Save(ctx, srv.URL+"/x", strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected read-only error, got %v", err)
	}
	if err := s.Delete(ctx, srv.URL+"/protocol.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestOpenRefusesLoopbackByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "internal secrets")
	}))
	defer srv.Close()

	s := Wrap(newLocal(t), Options{})
	_, err := s.Open(context.Background(), srv.URL+"/latest/meta-data")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for a loopback URL, got %v", err)
	}
	if !strings.Contains(err.Error(), "not public") {
		t.Fatalf("expected the blocked address in the error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("loopback server was reached %d times", hits.Load())
	}
}

func TestOpenRefusesLocalhostName(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer internal.Close()
	s := Wrap(newLocal(t), Options{})

	// localhost resolves to loopback, so the first hop is already refused.
	_, err := s.Open(context.Background(), strings.Replace(internal.URL, "127.0.0.1", "localhost", 1))
	if !domain.IsKind(err, domain.ErrInvalidInput) || hits.Load() != 0 {
		t.Fatalf("expected localhost to be refused, got %v after %d hits", err, hits.Load())
	}
}

func TestOpenCapsBodySize(t *testing.T) {
	body := strings.Repeat("a", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chunked" {
			w.(http.Flusher).Flush()
		}
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()
	s := Wrap(newLocal(t), Options{AllowPrivateNetworks: true, MaxBytes: 10})
	ctx := context.Background()

	if _, err := s.Open(ctx, srv.URL+"/sized"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected declared length over the cap to be refused, got %v", err)
	}

	rc, err := s.Open(ctx, srv.URL+"/chunked")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected read past the cap to fail, got %v", err)
	}
	if len(raw) > 10 {
		t.Fatalf("read %d bytes past a 10 byte cap", len(raw))
	}
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.10", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		if got := isPublic(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("isPublic(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestLocalKeysPassThrough(t *testing.T) {
	s := Wrap(newLocal(t), Options{})
	ctx := context.Background()

	if err := s.Save(ctx, "k", strings.NewReader("local")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	if string(raw) != "local" {
		t.Fatalf("Open() = %q", raw)
	}
	if !IsURL("HTTPS://example.org/a.pdf") || IsURL("k") {
		t.Fatal("IsURL misclassified keys")
	}
}

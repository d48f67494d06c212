// Package remote lets documents registered by URL be read like stored
// objects. Writes and deletes of URL keys are refused.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxBytes = 50 << 20
)

// ErrBlockedAddress is returned when a URL resolves to an address that is
// not publicly routable.
var ErrBlockedAddress = errors.New("destination address is not public")

// sharedAddressSpace is the carrier-grade NAT range, not covered by
// netip.Addr.IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

type Options struct {
	// MaxBytes caps a fetched body. Zero means 50 MiB.
	MaxBytes int64
	Timeout  time.Duration
	// AllowPrivateNetworks lets URLs reach loopback, link-local and private
	// addresses. Only for deployments whose documents live on an intranet.
	AllowPrivateNetworks bool
}

type Storage struct {
	next     ports.ObjectStorage
	client   *http.Client
	maxBytes int64
}

// Wrap serves http(s) keys itself and passes every other key to next.
func Wrap(next ports.ObjectStorage, opts Options) *Storage {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Storage{next: next, client: newClient(opts), maxBytes: opts.MaxBytes}
}

// newClient dials only public addresses unless told otherwise. The check
// runs on the resolved address of every connection, redirects included.
// Proxies from the environment are ignored since they would be dialed
// instead of the target.
func newClient(opts Options) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !opts.AllowPrivateNetworks {
		dialer.Control = rejectNonPublic
	}
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Timeout: opts.Timeout, Transport: transport}
}

func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !isPublic(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

func IsURL(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	if IsURL(key) {
		return domain.WrapError(domain.ErrInvalidInput, "save object", errors.New("remote documents are read-only"))
	}
	return s.next.Save(ctx, key, data)
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !IsURL(key) {
		return s.next.Open(ctx, key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, http.NoBody)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch remote document", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "fetch remote document", err)
		}
		return nil, domain.WrapError(domain.ErrTemporary, "fetch remote document", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		kind := domain.ErrTemporary
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			kind = domain.ErrDocumentNotFound
		} else if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			kind = domain.ErrInvalidInput
		}
		return nil, domain.WrapError(kind, "fetch remote document", fmt.Errorf("status %d for %s", resp.StatusCode, key))
	}
	if resp.ContentLength > s.maxBytes {
		resp.Body.Close()
		return nil, tooLarge(s.maxBytes)
	}
	return &cappedBody{r: io.LimitReader(resp.Body, s.maxBytes+1), closer: resp.Body, max: s.maxBytes}, nil
}

// Delete is a no-op for URL keys; the remote copy is not ours.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if IsURL(key) {
		return nil
	}
	return s.next.Delete(ctx, key)
}

// cappedBody fails the read that goes past the limit instead of silently
// truncating the document.
type cappedBody struct {
	r      io.Reader
	closer io.Closer
	max    int64
	read   int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.max {
		return 0, tooLarge(b.max)
	}
	return n, err
}

func (b *cappedBody) Close() error {
	return b.closer.Close()
}

func tooLarge(limit int64) error {
	return domain.WrapError(domain.ErrInvalidInput, "fetch remote document", fmt.Errorf("remote document exceeds %d bytes", limit))
}

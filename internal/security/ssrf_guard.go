package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrBlockedDestination marks a URL refused for where it points rather
// than for how it is written.
var ErrBlockedDestination = errors.New("blocked destination")

// SSRFGuardService vets operator-supplied photo URLs before and during the fetch.
type SSRFGuardService interface {
	// NewSafeClient returns a client that re-checks every resolved address
	// and only dials ports 80 and 443.
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL runs the checks that need no DNS lookup.
	ValidateURL(rawURL string) error
}

var photoSchemes = []string{"http", "https"}

// internalPrefixes covers private, loopback, link-local (cloud metadata
// included), "this network" and IPv6 unique-local space.
var internalPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// Guard is the safeurl-backed SSRFGuardService.
type Guard struct{}

// NewSSRFGuard returns a Guard.
func NewSSRFGuard() *Guard {
	return &Guard{}
}

// NewSafeClient builds the photo import client.
func (g *Guard) NewSafeClient(timeout time.Duration) *http.Client {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(photoSchemes...).
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(cfg).Client
}

// ValidateURL refuses malformed and non-http(s) URLs, then internal IP
// literals and localhost names with ErrBlockedDestination. Names that only
// resolve to internal addresses are left to NewSafeClient.
func (g *Guard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !slices.Contains(photoSchemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("disallowed scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("no host in URL %q", rawURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isInternal(addr) {
			return fmt.Errorf("%w: IP address %s", ErrBlockedDestination, addr)
		}
		return nil
	}

	name := strings.ToLower(strings.TrimSuffix(host, "."))
	if name == "localhost" || strings.HasSuffix(name, ".localhost") {
		return fmt.Errorf("%w: host %s", ErrBlockedDestination, host)
	}
	return nil
}

func isInternal(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range internalPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

var _ SSRFGuardService = (*Guard)(nil)

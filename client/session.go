package client

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/opteryx-data/opteryx-go/core"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 8000
	defaultTimeout = 30 * time.Second
)

// Config holds the parameters for a new session.
type Config struct {
	Host string
	Port int
	// Username and Secret are the client id/secret pair for the
	// client-credentials grant. Leave both empty to skip authentication.
	Username string
	Secret   string
	// Token is a pre-supplied bearer token. When set, the credentials
	// grant is skipped entirely.
	Token    string
	Database string
	// Secure selects https over http.
	Secure bool
	// Timeout applies to every individual HTTP request.
	Timeout time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Host == "" {
		out.Host = defaultHost
	}
	if out.Port == 0 {
		out.Port = defaultPort
	}
	if out.Timeout == 0 {
		out.Timeout = defaultTimeout
	}
	return &out
}

// Session is one logical connection to the data service. It owns a pooled
// HTTP transport for its whole lifetime and an authentication context shared
// by all cursors created from it. Once closed, every operation fails fast
// with a programming error.
type Session struct {
	cfg        *Config
	httpClient *http.Client
	auth       *authenticator
	closed     atomic.Bool
}

// Connect creates a new session. No network traffic happens here; the
// credentials grant runs lazily on the first request that needs it.
func Connect(cfg *Config) (*Session, error) {
	if cfg == nil {
		return nil, core.NewProgrammingError("nil config")
	}
	cfg = cfg.withDefaults()

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout

	return &Session{
		cfg:        cfg,
		httpClient: httpClient,
		auth:       newAuthenticator(cfg, httpClient),
	}, nil
}

func (s *Session) checkClosed() error {
	if s.closed.Load() {
		return core.NewProgrammingError("connection is closed")
	}
	return nil
}

// Cursor creates a new cursor on this session.
func (s *Session) Cursor() (*Cursor, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	return newCursor(s), nil
}

// Commit is a no-op: the backing service is read-only.
func (s *Session) Commit() error {
	return s.checkClosed()
}

// Rollback is a no-op: the backing service is read-only.
func (s *Session) Rollback() error {
	return s.checkClosed()
}

// Close terminates the pooled transport. Subsequent operations on this
// session and on any of its cursors fail with a programming error.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.httpClient.CloseIdleConnections()
	}
}

// normalizeDomain strips known subdomain prefixes from a host to obtain the
// base domain: "data.example.app" and "auth.example.app" both yield
// "example.app".
func normalizeDomain(host string) string {
	for _, prefix := range []string{"data.", "auth."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}

// subdomainHost prefixes the base domain with the given subdomain. Bare
// hostnames, localhost and IP addresses are treated as non-DNS and returned
// unmodified.
func subdomainHost(host, subdomain string) string {
	domain := normalizeDomain(host)
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, "localhost") {
		return domain
	}
	if net.ParseIP(domain) != nil {
		return domain
	}
	return subdomain + "." + domain
}

func (s *Session) scheme() string {
	if s.cfg.Secure {
		return "https"
	}
	return "http"
}

// urlFor builds a base URL for the given host, dropping default ports.
func (s *Session) urlFor(host string) string {
	if (s.cfg.Secure && s.cfg.Port == 443) || (!s.cfg.Secure && s.cfg.Port == 80) {
		return fmt.Sprintf("%s://%s", s.scheme(), host)
	}
	return fmt.Sprintf("%s://%s:%d", s.scheme(), host, s.cfg.Port)
}

// dataBaseURL is the base URL for statement endpoints, targeting the "data"
// subdomain for DNS-style hosts.
func (s *Session) dataBaseURL() string {
	return s.urlFor(subdomainHost(s.cfg.Host, "data"))
}

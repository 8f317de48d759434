// Package transport builds the HTTP round trippers used to fetch the remote catalog.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Transport modes accepted by New.
const (
	ModeStandard = "standard"
	ModeChrome   = "chrome"
)

// New returns the round tripper for mode. An empty mode means ModeStandard.
// timeout bounds connection setup (dial and TLS handshake).
func New(mode string, timeout time.Duration) (http.RoundTripper, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeStandard:
		return NewStandardTransport(timeout), nil
	case ModeChrome:
		return NewChromeTransport(timeout), nil
	default:
		return nil, fmt.Errorf("unknown catalog transport %q (want %s or %s)", mode, ModeStandard, ModeChrome)
	}
}

// NewStandardTransport returns a clone of http.DefaultTransport with
// connection setup bounded by timeout.
func NewStandardTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		t.TLSHandshakeTimeout = timeout
	}
	return t
}

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// Static hosts behind CDNs sometimes throttle clients whose TLS handshake
// does not look like a browser. The catalog is a static JSON document, so
// the chrome mode dials with uTLS (HelloChrome_Auto), lets ALPN pick h2 or
// http/1.1, and frames h2 with x/net/http2.
//
// =============================================================================

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint. Supports both HTTP/2 and HTTP/1.1 based on ALPN negotiation.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChromeTLS(ctx, dialer, network, addr)
	}

	return &chromeTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		},
		h1: &http.Transport{
			DialTLSContext:    dial,
			ForceAttemptHTTP2: false,
		},
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip tries HTTP/2 first and falls back to HTTP/1.1.
// Plain http URLs skip the fingerprinted dial entirely.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	return t.h1.RoundTrip(req)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach both transports.
func (t *chromeTransport) CloseIdleConnections() {
	t.h2.CloseIdleConnections()
	t.h1.CloseIdleConnections()
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

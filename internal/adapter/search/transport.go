package search

import (
	"net"
	"net/http"
	"time"
)

// Default transport settings for the provider API: one host, few idle
// connections, short-lived process.
const (
	defaultConnTimeout     = 10 * time.Second
	defaultMaxIdleConns    = 4
	defaultIdleConnTimeout = 90 * time.Second
)

// NewHTTPClient returns a client with a pooled transport for provider calls.
// It sets no overall Timeout; deadlines come from the request context.
func NewHTTPClient(connTimeout time.Duration) *http.Client {
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: connTimeout,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConns,
			IdleConnTimeout:     defaultIdleConnTimeout,
			ForceAttemptHTTP2:   true,
		},
	}
}

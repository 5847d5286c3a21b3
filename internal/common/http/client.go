// internal/common/http/client.go
package http

import (
	"net"
	"net/http"
	"time"
)

// Options tunes the pooled transport shared by the outbound API clients.
type Options struct {
	Timeout             time.Duration
	MaxIdleConnsPerHost int
	ResponseTimeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		Timeout:             60 * time.Second,
		MaxIdleConnsPerHost: 10,
		ResponseTimeout:     30 * time.Second,
	}
}

// NewTransport returns a keep-alive transport. Zero fields fall back to
// DefaultOptions.
func NewTransport(opts Options) *http.Transport {
	def := DefaultOptions()
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = def.ResponseTimeout
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.ResponseTimeout,
	}
}

// NewClient wraps NewTransport with an overall request timeout.
func NewClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewTransport(opts),
	}
}

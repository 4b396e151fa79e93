// ABOUTME: Follows HTTP redirects of playlist URL entries to their final location
// ABOUTME: Probes with HEAD, falls back to GET, and paces requests with a rate limiter

// Package urlorigin discovers the final URL and origin server behind stream links.
package urlorigin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/idna"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single probe, redirects included
	DefaultTimeout = 8 * time.Second
	// DefaultRate is the number of probes started per second
	DefaultRate = 5.0

	userAgent = "m3u-dump/1.0"
)

// Link is the origin information recorded for one URL entry
type Link struct {
	OriginalURL  string
	FinalURL     string
	OriginServer string
}

// Options configure a Resolver
type Options struct {
	Timeout time.Duration
	Rate    float64 // probes per second, <= 0 disables pacing
	Client  *http.Client
}

// Resolver probes URLs sequentially
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// New creates a Resolver with defaults applied for zero options
func New(opts Options) *Resolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	r := &Resolver{client: client, timeout: timeout}
	if opts.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	return r
}

// Resolve returns the origin link for raw. Network failures are not errors:
// the final URL falls back to the original. Only a cancelled ctx is reported.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Link, error) {
	final, err := r.FinalURL(ctx, raw)
	if err != nil && ctx.Err() != nil {
		return Link{}, ctx.Err()
	}

	if err != nil || final == "" {
		final = raw
	}

	return Link{
		OriginalURL:  raw,
		FinalURL:     final,
		OriginServer: OriginServer(final),
	}, nil
}

// FinalURL follows redirects for raw, trying HEAD first and GET when HEAD fails
func (r *Resolver) FinalURL(ctx context.Context, raw string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed to wait for probe slot: %w", err)
		}
	}

	final, headErr := r.probe(ctx, http.MethodHead, raw)
	if headErr == nil {
		return final, nil
	}

	final, getErr := r.probe(ctx, http.MethodGet, raw)
	if getErr != nil {
		return "", errors.Join(headErr, getErr)
	}

	return final, nil
}

func (r *Resolver) probe(ctx context.Context, method, raw string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, raw, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build %s request: %w", method, err)
	}

	req.Header.Set("User-Agent", userAgent)

	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to %s %s: %w", method, raw, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	// Drain a little so the connection can be reused, streams never end
	_, _ = io.CopyN(io.Discard, resp.Body, 512)

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("failed to %s %s: status %d", method, raw, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

// OriginServer returns scheme://host[:port] for u, or "" when u has no scheme or host.
// Internationalized host names are converted to their ASCII (punycode) form.
func OriginServer(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	return parsed.Scheme + "://" + asciiHost(parsed)
}

// asciiHost returns the URL's host[:port] with the host name in lowercase ASCII
func asciiHost(u *url.URL) string {
	host := u.Hostname()

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	} else {
		host = strings.ToLower(host)
	}

	if port := u.Port(); port != "" {
		return net.JoinHostPort(host, port)
	}

	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}

	return host
}

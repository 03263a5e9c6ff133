// Package httpfetch is the reference NetworkFetcher: a plain
// *http.Client with optional proxy support, adapted from the agent's
// general-purpose HTTP client builder.
package httpfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single LD/SD/CRL fetch.
const DefaultTimeout = 30 * time.Second

// ProxyConfig carries the outbound proxy settings a deployment may need
// to reach an LSD server from behind a corporate network.
type ProxyConfig struct {
	HTTPProxy   string
	HTTPSProxy  string
	SOCKS5Proxy string
	NoProxy     string
}

// HasProxy reports whether any proxy is configured.
func (c *ProxyConfig) HasProxy() bool {
	return c != nil && (c.HTTPProxy != "" || c.HTTPSProxy != "" || c.SOCKS5Proxy != "")
}

// Options configures NewClient.
type Options struct {
	Timeout time.Duration
	Proxy   *ProxyConfig
}

// NewClient builds an *http.Client with optional proxy support.
func NewClient(opts Options) (*http.Client, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if opts.Proxy.HasProxy() {
		if err := configureProxy(transport, opts.Proxy); err != nil {
			return nil, fmt.Errorf("configure proxy: %w", err)
		}
	}

	return &http.Client{Timeout: opts.Timeout, Transport: transport}, nil
}

func configureProxy(transport *http.Transport, cfg *ProxyConfig) error {
	if cfg.SOCKS5Proxy != "" {
		return configureSocks5Proxy(transport, cfg.SOCKS5Proxy)
	}

	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req, cfg)
	}
	return nil
}

func configureSocks5Proxy(transport *http.Transport, socks5URL string) error {
	proxyURL, err := url.Parse(socks5URL)
	if err != nil {
		return fmt.Errorf("parse SOCKS5 proxy URL: %w", err)
	}

	var auth *proxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
	if err != nil {
		return fmt.Errorf("create SOCKS5 dialer: %w", err)
	}

	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	return nil
}

func proxyFunc(req *http.Request, cfg *ProxyConfig) (*url.URL, error) {
	if shouldBypassProxy(req.URL.Host, cfg.NoProxy) {
		return nil, nil
	}

	var proxyURLStr string
	if req.URL.Scheme == "https" && cfg.HTTPSProxy != "" {
		proxyURLStr = cfg.HTTPSProxy
	} else if cfg.HTTPProxy != "" {
		proxyURLStr = cfg.HTTPProxy
	}
	if proxyURLStr == "" {
		return nil, nil
	}
	return url.Parse(proxyURLStr)
}

func shouldBypassProxy(host string, noProxy string) bool {
	if noProxy == "" {
		return false
	}
	hostOnly, _, err := net.SplitHostPort(host)
	if err != nil {
		hostOnly = host
	}
	for _, pattern := range strings.Split(noProxy, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if pattern == "*" {
			return true
		}
		if strings.EqualFold(hostOnly, pattern) {
			return true
		}
		if strings.HasPrefix(pattern, ".") && strings.HasSuffix(strings.ToLower(hostOnly), strings.ToLower(pattern)) {
			return true
		}
		if strings.HasSuffix(strings.ToLower(hostOnly), "."+strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/rnnvis/rnnvis/pkg/config"
)

var DebugLog func(string, ...interface{})

const userAgent = "rnnvis-config-fetcher"

// Session is the HTTP client used to fetch remote model configs.
type Session struct {
	Client *http.Client
}

type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}

	if DebugLog != nil {
		DebugLog("requesting url: %s", req.URL.String())
	}

	resp, err := t.Transport.RoundTrip(req)

	if DebugLog != nil {
		host := hostOf(req.URL.String())

		if err != nil {
			DebugLog("request to %s failed: %v", host, err)
		} else {
			DebugLog("response for %s: status code %d", req.URL.String(), resp.StatusCode)

			if contentType := resp.Header.Get("Content-Type"); contentType != "" {
				DebugLog("response content-type: %s", contentType)
			}

			if resp.StatusCode >= 400 {
				DebugLog("unexpected status code %d received from %s", resp.StatusCode, host)
			}
		}
	}

	return resp, err
}

func hostOf(url string) string {
	parts := strings.SplitN(url, "://", 2)
	if len(parts) == 2 {
		host := strings.Split(parts[1], "/")[0]
		if host != "" {
			return host
		}
	}
	return "unknown"
}

func New(cfg *config.Config) *Session {
	baseTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Timeout:   time.Duration(cfg.DefaultSettings.Timeout) * time.Second,
		Transport: &LoggingTransport{Transport: baseTransport},
	}

	return &Session{Client: client}
}

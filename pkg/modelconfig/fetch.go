package modelconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxDocumentSize = 1 << 20

// IsRemote reports whether location should be fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Fetch downloads a config document and parses it.
func Fetch(ctx context.Context, client *http.Client, url string) (*Config, error) {
	if client == nil {
		client = http.DefaultClient
	}

	if DebugLog != nil {
		DebugLog("fetching model config from %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%s: document exceeds %d bytes", url, maxDocumentSize)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return cfg, nil
}

// Open loads a config from a local path or an http(s) URL.
func Open(ctx context.Context, client *http.Client, location string) (*Config, error) {
	if IsRemote(location) {
		return Fetch(ctx, client, location)
	}
	return Load(location)
}

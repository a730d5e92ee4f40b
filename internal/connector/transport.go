package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport names accepted in ProviderConfig.Transport.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable_http"
	TransportSSE            = "sse"
)

// ProviderConfig describes one MCP tool provider.
type ProviderConfig struct {
	Name      string            `mapstructure:"name"`
	Transport string            `mapstructure:"transport"`
	Command   string            `mapstructure:"command"`
	Args      []string          `mapstructure:"args"`
	Env       map[string]string `mapstructure:"env"`
	Dir       string            `mapstructure:"dir"`
	URL       string            `mapstructure:"url"`
	Headers   map[string]string `mapstructure:"headers"`
}

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

func buildTransport(_ context.Context, pc ProviderConfig) (mcp.Transport, error) {
	switch normalizeTransport(pc.Transport) {
	case TransportStdio:
		return buildStdioTransport(pc)
	case TransportStreamableHTTP:
		endpoint, err := normalizeHTTPURL(pc.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid streamable HTTP endpoint: %w", err)
		}
		return &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: httpClient(pc.Headers)}, nil
	case TransportSSE:
		endpoint, err := normalizeHTTPURL(pc.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid SSE endpoint: %w", err)
		}
		return &mcp.SSEClientTransport{Endpoint: endpoint, HTTPClient: httpClient(pc.Headers)}, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", pc.Transport)
	}
}

// normalizeTransport accepts the spellings used by common MCP client configs.
func normalizeTransport(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "stdio", "command":
		return TransportStdio
	case "streamable_http", "streamable-http", "streamablehttp", "http":
		return TransportStreamableHTTP
	case "sse":
		return TransportSSE
	default:
		return t
	}
}

// The subprocess must outlive the connect call, so it is not bound to ctx.
// The SDK terminates it when the session closes.
func buildStdioTransport(pc ProviderConfig) (mcp.Transport, error) {
	command := strings.TrimSpace(pc.Command)
	if command == "" {
		return nil, fmt.Errorf("stdio command is empty")
	}
	// #nosec G204 -- command comes from the operator's provider config
	cmd := exec.Command(command, pc.Args...)
	cmd.Dir = pc.Dir
	if len(pc.Env) > 0 {
		env := os.Environ()
		for k, v := range pc.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	// Server logs go to our stderr; stdout carries the protocol.
	cmd.Stderr = os.Stderr
	return &mcp.CommandTransport{Command: cmd}, nil
}

func normalizeHTTPURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}

func httpClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return nil
	}
	return &http.Client{Transport: headerTransport{base: http.DefaultTransport, headers: headers}}
}

// headerTransport adds static headers (e.g. API keys) to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.base.RoundTrip(req)
}

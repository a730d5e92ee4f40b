package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/petasbytes/toolchat/internal/llm"
)

const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
)

// Settings selects and configures a backend.
type Settings struct {
	Kind    string
	Model   string
	APIKey  string
	BaseURL string
	// HTTPClient overrides the transport; tests point it at fakes.
	HTTPClient *http.Client
}

// New returns the backend named by s.Kind. An empty kind selects Anthropic.
func New(s Settings) (llm.Model, error) {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "", KindAnthropic:
		var opts []option.RequestOption
		if s.APIKey != "" {
			opts = append(opts, option.WithAPIKey(s.APIKey))
		}
		if s.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(s.BaseURL))
		}
		if s.HTTPClient != nil {
			opts = append(opts, option.WithHTTPClient(s.HTTPClient))
		}
		return NewAnthropic(s.Model, opts...), nil
	case KindOpenAI:
		var opts []openai.Option
		if s.APIKey != "" {
			opts = append(opts, openai.WithToken(s.APIKey))
		}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		if s.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(s.HTTPClient))
		}
		return NewOpenAI(s.Model, opts...)
	}
	return nil, fmt.Errorf("unknown model provider %q", s.Kind)
}

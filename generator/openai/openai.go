// Package openai is a samplecache.Generator for OpenAI-compatible
// chat completion endpoints. One Generate call is one POST with n choices.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/unkn0wn-root/samplecache"
)

// Config holds configuration for a Generator.
type Config struct {
	BaseURL     string // e.g. "https://api.fireworks.ai/inference/v1"
	APIKey      string
	Model       string
	Temperature float64
	// Params are extra body fields, e.g. top_p. Values that parse as
	// numbers or booleans are sent as such.
	Params  map[string]string
	Timeout time.Duration // Optional, defaults to 120s
	Client  *http.Client  // Optional; Timeout is ignored when set
}

type Generator struct {
	cfg    Config
	client *http.Client
}

var _ samplecache.Generator = (*Generator)(nil)

func New(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Generator{cfg: cfg, client: client}, nil
}

// Identity returns the cache identity for this generator under provider.
func (g *Generator) Identity(provider, alias string) samplecache.Identity {
	return samplecache.Identity{
		Provider:    provider,
		Model:       g.cfg.Model,
		Alias:       alias,
		Temperature: g.cfg.Temperature,
		Params:      g.cfg.Params,
	}
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying later may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type choice struct {
	Index   int     `json:"index"`
	Message message `json:"message"`
}

type completionResponse struct {
	Choices []choice `json:"choices"`
}

// Generate asks for n completions of prompt and returns their contents in
// choice index order.
func (g *Generator) Generate(ctx context.Context, prompt string, n int) ([]string, error) {
	body, err := json.Marshal(g.payload(prompt, n))
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var cr completionResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("openai: parse response: %w", err)
	}
	sort.SliceStable(cr.Choices, func(i, j int) bool { return cr.Choices[i].Index < cr.Choices[j].Index })
	out := make([]string, len(cr.Choices))
	for i, c := range cr.Choices {
		out[i] = c.Message.Content
	}
	return out, nil
}

func (g *Generator) payload(prompt string, n int) map[string]any {
	p := make(map[string]any, len(g.cfg.Params)+4)
	for k, v := range g.cfg.Params {
		p[k] = paramValue(v)
	}
	p["model"] = g.cfg.Model
	p["temperature"] = g.cfg.Temperature
	p["n"] = n
	p["messages"] = []message{{Role: "user", Content: prompt}}
	return p
}

func paramValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// Preset is a known OpenAI-compatible provider.
type Preset struct {
	Name    string
	BaseURL string
	KeyEnv  string // environment variable holding the API key
}

var presets = map[string]Preset{
	"fireworks": {Name: "fireworks", BaseURL: "https://api.fireworks.ai/inference/v1", KeyEnv: "FIREWORKS_API_KEY"},
	"302ai":     {Name: "302ai", BaseURL: "https://api.302.ai/v1", KeyEnv: "AI302_API_KEY"},
	"closeai":   {Name: "closeai", BaseURL: "https://api.openai-proxy.org/v1", KeyEnv: "CLOSEAI_API_KEY"},
	"xmcp":      {Name: "xmcp", BaseURL: "https://llm.xmcp.ltd", KeyEnv: "XMCP_API_KEY"},
	"openai":    {Name: "openai", BaseURL: "https://api.openai.com/v1", KeyEnv: "OPENAI_API_KEY"},
}

// LookupPreset returns the preset called name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// Presets lists the known preset names, sorted.
func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromPreset fills BaseURL and, when empty, APIKey from the named preset.
// It fails when the preset is unknown or its key variable is unset.
func FromPreset(name string, cfg Config) (*Generator, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("openai: unknown preset %q", name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(p.KeyEnv)
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: preset %s needs %s", name, p.KeyEnv)
		}
	}
	return New(cfg)
}

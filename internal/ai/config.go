package ai

import "time"

// Preset carries a provider's default endpoint and model.
type Preset struct {
	BaseURL string
	Model   string
}

// presets enumerates the providers with built-in defaults. Any other
// provider name works too, it just needs an explicit base URL and model.
var presets = map[string]Preset{
	"deepseek": {BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
	"qwen":     {BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", Model: "qwen-plus"},
	"openai":   {BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
}

// PresetFor returns the built-in defaults for a provider name.
func PresetFor(provider string) (Preset, bool) {
	p, ok := presets[provider]
	return p, ok
}

const defaultTimeout = 120 * time.Second

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
	// Timeout bounds a whole request including the streamed body.
	// Zero means the 120s default.
	Timeout time.Duration
	// MaxTokens caps the completion length. Zero means the server default.
	MaxTokens int
}

// ApplyPreset fills empty BaseURL/Model from the provider's preset.
func (c Config) ApplyPreset() Config {
	p, ok := presets[c.Provider]
	if !ok {
		return c
	}
	if c.BaseURL == "" {
		c.BaseURL = p.BaseURL
	}
	if c.Model == "" {
		c.Model = p.Model
	}
	return c
}

// Validate reports a configuration-category error for anything that would
// make a network call pointless. Run before every session start so a
// misconfigured session never leaves Idle.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return configErr("no API base URL configured (set ai.base_url or choose a known provider)")
	}
	if c.Model == "" {
		return configErr("no model configured (set ai.model)")
	}
	if c.APIKey == "" {
		return configErr("no API key configured (set ai.api_key or CLIPVAULT_AI_API_KEY)")
	}
	return nil
}

package config

// LLMConfig configures the remote model collaborator.
type LLMConfig struct {
	// APIKey is the Gemini credential. It lives for the process only and is
	// normally supplied through the environment rather than the file.
	APIKey string `yaml:"api_key,omitempty"`

	// Model preselects a model id; empty means the first enumerated model.
	Model string `yaml:"model"`

	// Stream renders replies progressively.
	Stream bool `yaml:"stream"`
}

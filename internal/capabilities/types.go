package capabilities

import "gopkg.in/yaml.v3"

// ModelCapabilities describes what a model can do and its limits.
// Used to validate the configured analyzer and comparator models at
// startup: the comparator must support vision input.
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	SupportsVision bool `yaml:"supports_vision" json:"supports_vision"`
	SupportsJSON   bool `yaml:"supports_json" json:"supports_json"`

	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`
}

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Models []ModelCapabilities
}

// UnmarshalYAML preserves the model order defined in the YAML file
// while filling each model's ID from its mapping key.
func (p *ProviderCapabilities) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Models yaml.Node `yaml:"models"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	// models is a mapping of id -> capabilities; mapping nodes keep
	// key/value pairs in document order
	content := raw.Models.Content
	for i := 0; i+1 < len(content); i += 2 {
		var caps ModelCapabilities
		if err := content[i+1].Decode(&caps); err != nil {
			return err
		}
		caps.ID = content[i].Value
		p.Models = append(p.Models, caps)
	}
	return nil
}

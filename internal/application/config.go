// Package application wires the evaluation engines together: it binds the
// YAML configuration surface and coordinates recomputation across evaluees
// with the concurrency discipline the engines themselves deliberately lack.
package application

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/infrastructure/engines"
	"github.com/ahrav/go-merit/infrastructure/insights"
)

// EngineConfig is the top-level configuration document for the evaluation
// system. One document configures every engine plus the optional insight
// generation client.
type EngineConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across updates.
	Version string `yaml:"version" validate:"required,semver"`

	// Metadata contains descriptive information about this deployment.
	Metadata Metadata `yaml:"metadata" validate:"required"`

	// DefaultPeriod optionally seeds newly created cycles with a period
	// key in YYYY-MM form.
	DefaultPeriod string `yaml:"default_period,omitempty" validate:"omitempty,period"`

	// Lifecycle configures cycle state transitions.
	Lifecycle engines.LifecycleConfig `yaml:"lifecycle"`

	// Aggregation configures score aggregation and variance alerting.
	Aggregation engines.AggregationConfig `yaml:"aggregation" validate:"required"`

	// Rotation configures the post-award recognition cooldown.
	Rotation engines.RotationConfig `yaml:"rotation" validate:"required"`

	// Annual configures end-of-year scoring weights and eligibility gates.
	Annual engines.AnnualConfig `yaml:"annual" validate:"required"`

	// Insights configures optional narrative generation.
	Insights InsightsConfig `yaml:"insights"`
}

// Metadata provides descriptive information about a configuration document
// for organization and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this configuration.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the deployment's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Labels are arbitrary key-value pairs for integration with external
	// systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// InsightsConfig controls the optional language-model analysis attached to
// aggregated results. When Enabled is false the rest of the section is
// ignored.
type InsightsConfig struct {
	// Enabled turns insight generation on.
	Enabled bool `yaml:"enabled"`

	// Provider selects the language-model backend.
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai anthropic google"`

	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`

	// Temperature controls generation randomness.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`

	// MaxTokens caps the analysis length.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1,max=8192"`

	// RequestsPerSecond paces batch generation after a cycle closes.
	// Zero disables client-side pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=100"`

	// Burst is the short-term allowance above the sustained rate.
	Burst int `yaml:"burst" validate:"omitempty,min=1,max=100"`
}

// configValidator carries the custom tag registrations needed by
// EngineConfig on top of the standard validator rules.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tag names.
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		return engines.ValidPeriod(fl.Field().String())
	})
	return v
}

// ParseEngineConfig decodes and validates a YAML configuration document.
// Decoding is strict: unknown fields are rejected rather than silently
// dropped, so typos in deployed configuration surface immediately.
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	var config EngineConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the document against its declared constraints.
func (c *EngineConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.Insights.Enabled && c.Insights.Provider == "" {
		return fmt.Errorf("configuration validation failed: insights.provider is required when insights are enabled")
	}
	return nil
}

// DefaultEngineConfig returns a complete configuration with every engine on
// its default settings and insight generation disabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Version: "1.0.0",
		Metadata: Metadata{
			Name: "staff-evaluation",
		},
		Lifecycle:   engines.DefaultLifecycleConfig(),
		Aggregation: engines.DefaultAggregationConfig(),
		Rotation:    engines.DefaultRotationConfig(),
		Annual:      engines.DefaultAnnualConfig(),
		Insights: InsightsConfig{
			Temperature:       0.3,
			MaxTokens:         1024,
			RequestsPerSecond: 2,
			Burst:             4,
		},
	}
}

// EngineSet holds one constructed instance of every engine, built from a
// single validated configuration document.
type EngineSet struct {
	Lifecycle   *engines.LifecycleController
	Aggregation *engines.AggregationEngine
	Eligibility *engines.EligibilityEngine
	Annual      *engines.AnnualEngine
	Nomination  *engines.NominationMachine
}

// BuildEngines constructs the full engine set from the configuration.
// Engines share the configuration document so their settings cannot drift
// apart within one deployment.
func BuildEngines(config EngineConfig) (*EngineSet, error) {
	lifecycle, err := engines.NewLifecycleController("lifecycle", config.Lifecycle)
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle controller: %w", err)
	}

	aggregation, err := engines.NewAggregationEngine("aggregation", config.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("failed to build aggregation engine: %w", err)
	}

	eligibility, err := engines.NewEligibilityEngine("eligibility", config.Rotation)
	if err != nil {
		return nil, fmt.Errorf("failed to build eligibility engine: %w", err)
	}

	annual, err := engines.NewAnnualEngine("annual", config.Annual, eligibility)
	if err != nil {
		return nil, fmt.Errorf("failed to build annual engine: %w", err)
	}

	nomination, err := engines.NewNominationMachine("nomination")
	if err != nil {
		return nil, fmt.Errorf("failed to build nomination machine: %w", err)
	}

	return &EngineSet{
		Lifecycle:   lifecycle,
		Aggregation: aggregation,
		Eligibility: eligibility,
		Annual:      annual,
		Nomination:  nomination,
	}, nil
}

// BuildInsightsGenerator constructs the insight generator described by the
// insights section. It returns (nil, nil) when the section is disabled, so
// the result can be handed to CoordinatorDeps unconditionally. The API key
// comes from the caller rather than the document so credentials never live
// in deployed configuration files.
func BuildInsightsGenerator(config InsightsConfig, apiKey string) (*insights.Generator, error) {
	if !config.Enabled {
		return nil, nil
	}

	client, err := insights.NewClient(config.Provider, insights.ClientConfig{
		APIKey:     apiKey,
		Model:      config.Model,
		Middleware: insightsMiddleware(config),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build insights client: %w", err)
	}

	generatorConfig := insights.DefaultGeneratorConfig()
	generatorConfig.Temperature = config.Temperature
	if config.MaxTokens > 0 {
		generatorConfig.MaxTokens = config.MaxTokens
	}
	generator, err := insights.NewGenerator(client, generatorConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build insights generator: %w", err)
	}
	return generator, nil
}

// insightsMiddleware assembles the client middleware chain. Pacing is added
// only when a sustained rate is configured; zero disables it.
func insightsMiddleware(config InsightsConfig) []insights.Middleware {
	if config.RequestsPerSecond <= 0 {
		return nil
	}
	return []insights.Middleware{
		insights.RateLimitMiddleware(config.RequestsPerSecond, config.Burst),
	}
}

package model

import "time"

// Config is the full runner configuration.
//
// Hierarchy (highest to lowest priority): CLI flags, ANNOTEXT_* environment
// variables, config file (~/.annotext/config.yaml), defaults.
type Config struct {
	Language string        `yaml:"language" mapstructure:"language"`
	HTTP     HTTPConfig    `yaml:"http" mapstructure:"http"`
	Run      RunConfig     `yaml:"run" mapstructure:"run"`
	Cache    CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Stages   []StageConfig `yaml:"stages" mapstructure:"stages"`
	Seeds    []SeedPair    `yaml:"seeds" mapstructure:"seeds"`
	LLM      LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Output   OutputConfig  `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls document fetching when the document source is a URL.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RunConfig controls the executor.
type RunConfig struct {
	// Timeout is the run-level deadline. Exceeding it aborts the in-flight
	// stage call; annotations committed by earlier stages are preserved.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// SkipVerify disables the per-stage health probe before the run.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// StrictDuplicates makes a duplicate annotation from a stage fail that
	// stage instead of being skipped as an idempotent retry.
	StrictDuplicates bool `yaml:"strict_duplicates" mapstructure:"strict_duplicates"`

	// RatePerSecond / Burst bound requests per stage endpoint host.
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the stage response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// StageConfig describes one remote analysis service.
type StageConfig struct {
	Name     string        `yaml:"name" mapstructure:"name"`
	Kind     string        `yaml:"kind" mapstructure:"kind"` // sentiment, hate, fact_check
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Scale    int           `yaml:"scale" mapstructure:"scale"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Params are passed through to the service verbatim; unrecognized
	// options are the service's business.
	Params map[string]string `yaml:"params,omitempty" mapstructure:"params"`

	// ContinueOnError lets the run proceed past this stage's failure.
	ContinueOnError bool `yaml:"continue_on_error" mapstructure:"continue_on_error"`
}

// SeedPair is one claim/fact pair seeded into the store before the run.
// Hint is a substring locating the claim in the document text; the claim
// span expands from it to the next sentence boundary.
type SeedPair struct {
	Claim string `yaml:"claim" mapstructure:"claim"`
	Fact  string `yaml:"fact" mapstructure:"fact"`
	Hint  string `yaml:"hint" mapstructure:"hint"`
}

// LLMConfig controls the optional post-run summary. It never affects the
// pipeline result.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"-"` // from OPENAI_API_KEY only
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Verbose    bool   `yaml:"verbose" mapstructure:"verbose"`
	MaxCovered int    `yaml:"max_covered" mapstructure:"max_covered"` // covered-text truncation width
	JSONPath   string `yaml:"json,omitempty" mapstructure:"json"`     // optional JSON report path
}

// DefaultConfig returns the built-in defaults: the three standard analysis
// services on their conventional local ports.
func DefaultConfig() *Config {
	return &Config{
		Language: "en",
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "annotext/0.1 (+https://github.com/dkarpov/annotext)",
			MaxBodyBytes: 2_000_000,
		},
		Run: RunConfig{
			Timeout:       10 * time.Minute,
			RatePerSecond: 5,
			Burst:         5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Stages: []StageConfig{
			{
				Name:     "sentiment",
				Kind:     "sentiment",
				Endpoint: "http://localhost:9001",
				Scale:    1,
				Timeout:  3 * time.Minute,
				Params: map[string]string{
					"model_name": "cardiffnlp/twitter-xlm-roberta-base-sentiment",
					"selection":  "text",
				},
			},
			{
				Name:     "hatecheck",
				Kind:     "hate",
				Endpoint: "http://localhost:9002",
				Scale:    1,
				Timeout:  time.Minute,
				Params:   map[string]string{"selection": "text"},
			},
			{
				Name:     "factcheck",
				Kind:     "fact_check",
				Endpoint: "http://localhost:9003",
				Scale:    1,
				Timeout:  5 * time.Minute,
			},
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 600,
			Timeout:   30,
		},
		Output: OutputConfig{
			MaxCovered: 60,
		},
	}
}

package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deepagent/backend"
)

// SummarizationConfig controls history compaction.
type SummarizationConfig struct {
	MaxTokens    int     `yaml:"max_tokens" json:"max_tokens"`
	KeepMessages int     `yaml:"keep_messages" json:"keep_messages"`
	Threshold    float64 `yaml:"threshold" json:"threshold"`
}

// SubAgentConfig declares one named subagent the orchestrator can dispatch
// work to via the task tool.
type SubAgentConfig struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt"`
	Model        string   `yaml:"model" json:"model"`
	Tools        []string `yaml:"tools" json:"tools"` // empty = all tools
	MaxSteps     int      `yaml:"max_steps" json:"max_steps"`
}

// Config is the full agent configuration, loadable from YAML.
type Config struct {
	Model        string              `yaml:"model" json:"model"`
	SystemPrompt string              `yaml:"system_prompt" json:"system_prompt"`
	MaxSteps     int                 `yaml:"max_steps" json:"max_steps"`
	InterruptOn  []string            `yaml:"interrupt_on" json:"interrupt_on"`
	Backend      backend.Config      `yaml:"backend" json:"backend"`
	Summary      SummarizationConfig `yaml:"summarization" json:"summarization"`
	// EvictionThreshold is in tokens. Zero or absent disables eviction.
	EvictionThreshold int              `yaml:"eviction_threshold" json:"eviction_threshold"`
	SubAgents         []SubAgentConfig `yaml:"subagents" json:"subagents"`
}

// Defaults applied when a config omits a field.
const (
	DefaultModel    = "gpt-4o"
	DefaultMaxSteps = 50
)

// DefaultSystemPrompt is the base instruction set. Configs may replace it
// entirely; hooks append to it at request time.
const DefaultSystemPrompt = `You are an agent that completes tasks by calling tools in a loop.
Plan multi-step work with write_todos and keep the list current as you go.
Use the filesystem tools to read, create, and modify files.
When the task is done, respond with a final message and stop calling tools.`

// DefaultConfig returns a config with all defaults filled in.
func DefaultConfig() Config {
	return Config{
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		MaxSteps:     DefaultMaxSteps,
		Summary: SummarizationConfig{
			KeepMessages: DefaultKeepMessages,
			Threshold:    DefaultSummarizeThreshold,
		},
	}
}

// LoadConfig reads a YAML config file and merges it over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig unmarshals YAML config bytes and merges them over defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Summary.KeepMessages <= 0 {
		c.Summary.KeepMessages = DefaultKeepMessages
	}
	if c.Summary.Threshold <= 0 || c.Summary.Threshold > 1 {
		c.Summary.Threshold = DefaultSummarizeThreshold
	}
	for i := range c.SubAgents {
		if c.SubAgents[i].Model == "" {
			c.SubAgents[i].Model = c.Model
		}
		if c.SubAgents[i].MaxSteps <= 0 {
			c.SubAgents[i].MaxSteps = c.MaxSteps
		}
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.SubAgents))
	for _, sa := range c.SubAgents {
		if sa.Name == "" {
			return fmt.Errorf("subagent with empty name")
		}
		if seen[sa.Name] {
			return fmt.Errorf("duplicate subagent name %q", sa.Name)
		}
		seen[sa.Name] = true
		if sa.Description == "" {
			return fmt.Errorf("subagent %q missing description", sa.Name)
		}
	}
	return nil
}

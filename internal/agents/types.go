package agents

import "time"

// CrewFile represents an agent crew definition loaded from YAML. A crew
// describes the roles the generation pipeline runs for one content type.
type CrewFile struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Agents      []AgentConfig `yaml:"agents" json:"agents"`
	Tasks       []TaskConfig  `yaml:"tasks,omitempty" json:"tasks,omitempty"`
}

// AgentConfig defines a single agent role in the crew.
type AgentConfig struct {
	Name      string `yaml:"name" json:"name"`
	Goal      string `yaml:"goal" json:"goal"`
	Backstory string `yaml:"backstory,omitempty" json:"backstory,omitempty"`

	// Model configuration
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`             // Model identifier (server default when empty)
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"` // Sampling temperature, 0-2

	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// TaskConfig assigns one pipeline task to an agent.
type TaskConfig struct {
	Name           string `yaml:"name" json:"name"`
	Agent          string `yaml:"agent" json:"agent"`
	Description    string `yaml:"description,omitempty" json:"description,omitempty"`
	ExpectedOutput string `yaml:"expected_output,omitempty" json:"expected_output,omitempty"`
	Timeout        string `yaml:"timeout,omitempty" json:"timeout,omitempty"` // Task execution timeout (e.g., "90s", "5m")
}

// IsEnabled returns whether the agent is enabled (defaults to true).
func (a AgentConfig) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

// GetTemperature returns the sampling temperature, defaulting to 0.7.
func (a AgentConfig) GetTemperature() float64 {
	if a.Temperature == nil {
		return 0.7
	}
	return *a.Temperature
}

// GetTimeout parses and returns the task timeout duration.
func (t TaskConfig) GetTimeout() time.Duration {
	if t.Timeout == "" {
		return 0 // No timeout
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Agent returns the agent config with the given name, if present.
func (c *CrewFile) Agent(name string) (AgentConfig, bool) {
	for _, agent := range c.Agents {
		if agent.Name == name {
			return agent, true
		}
	}
	return AgentConfig{}, false
}

// DefaultCrew returns the built-in crew used when no workspace crew
// file overrides it. Its four tasks mirror the generation pipeline
// phases reported by the task API.
func DefaultCrew() *CrewFile {
	return &CrewFile{
		Name:        "default",
		Description: "Standard marketing content crew",
		Agents: []AgentConfig{
			{
				Name:      "content-strategist",
				Goal:      "Select and prepare the best template for the brief",
				Backstory: "Veteran marketing strategist who has planned hundreds of campaigns",
				Model:     "gpt-4o-mini",
			},
			{
				Name:      "content-writer",
				Goal:      "Write compelling copy that matches the brand voice",
				Backstory: "Senior copywriter with a decade of conversion-focused writing",
				Model:     "gpt-4o",
			},
			{
				Name:      "quality-reviewer",
				Goal:      "Score drafts for clarity, accuracy and brand fit",
				Backstory: "Meticulous editor who catches what everyone else misses",
				Model:     "gpt-4o-mini",
			},
			{
				Name:      "seo-optimizer",
				Goal:      "Polish copy for search visibility and engagement",
				Backstory: "Technical SEO specialist who keeps copy readable",
				Model:     "gpt-4o-mini",
			},
		},
		Tasks: []TaskConfig{
			{Name: "template-preparation", Agent: "content-strategist", Timeout: "60s"},
			{Name: "content-generation", Agent: "content-writer", Timeout: "5m"},
			{Name: "quality-assessment", Agent: "quality-reviewer", Timeout: "90s"},
			{Name: "optimization", Agent: "seo-optimizer", Timeout: "90s"},
		},
	}
}

// internal/workers/fund-search/filtered-search/config.go
package filteredsearch

import (
	"fmt"
	"time"

	"mf-search-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Model         string        `mapstructure:"model"`
	Temperature   float64       `mapstructure:"temperature"`
	TopK          int           `mapstructure:"top_k"`
	Results       int           `mapstructure:"results"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		Model:         "gpt-4o",
		Temperature:   0.3,
		TopK:          20,
		Results:       5,
	}
}

func ConfigFromApp(app *config.Config) *Config {
	c := DefaultConfig()
	w := config.GetWorkerConfig(app, TaskType)
	c.Enabled = w.Enabled
	c.MaxJobsActive = w.MaxJobsActive
	c.Timeout = config.GetDuration(w.Timeout)
	if app.OpenAI.SynthesisModel != "" {
		c.Model = app.OpenAI.SynthesisModel
	}
	c.Temperature = app.OpenAI.SynthesisTemp
	if app.Search.FilteredTopK > 0 {
		c.TopK = app.Search.FilteredTopK
	}
	if app.Search.FilteredResults > 0 {
		c.Results = app.Search.FilteredResults
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.TopK <= 0 || c.Results <= 0 {
		return fmt.Errorf("top_k and results must be positive")
	}
	if c.Results > c.TopK {
		return fmt.Errorf("results (%d) cannot exceed top_k (%d)", c.Results, c.TopK)
	}
	return nil
}

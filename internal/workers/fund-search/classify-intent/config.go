// internal/workers/fund-search/classify-intent/config.go
package classifyintent

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
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Model:         "gpt-4o-mini",
		Temperature:   0,
		CacheTTL:      time.Hour,
	}
}

// ConfigFromApp applies the worker entry and the openai classifier settings.
func ConfigFromApp(app *config.Config) *Config {
	c := DefaultConfig()
	w := config.GetWorkerConfig(app, TaskType)
	c.Enabled = w.Enabled
	c.MaxJobsActive = w.MaxJobsActive
	c.Timeout = config.GetDuration(w.Timeout)
	if app.OpenAI.ClassifierModel != "" {
		c.Model = app.OpenAI.ClassifierModel
	}
	c.Temperature = app.OpenAI.ClassifierTemp
	c.CacheTTL = time.Duration(app.OpenAI.ClassifierCacheTTL) * time.Second
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
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl cannot be negative")
	}
	return nil
}

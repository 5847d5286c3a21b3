// internal/workers/fund-search/single-fund/config.go
package singlefund

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
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		Model:         "gpt-4o",
		Temperature:   0.3,
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
	return nil
}

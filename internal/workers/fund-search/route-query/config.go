// internal/workers/fund-search/route-query/config.go
package routequery

import (
	"fmt"
	"time"

	"mf-search-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       90 * time.Second,
	}
}

func ConfigFromApp(app *config.Config) *Config {
	c := DefaultConfig()
	w := config.GetWorkerConfig(app, TaskType)
	c.Enabled = w.Enabled
	c.MaxJobsActive = w.MaxJobsActive
	c.Timeout = config.GetDuration(w.Timeout)
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

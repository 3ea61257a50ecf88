// internal/workers/legal/analyze-document/config.go
package analyzedocument

import (
	"time"

	"legal-analyzer/internal/common/config"
)

const defaultTimeout = 10 * time.Minute

type Config struct {
	Timeout time.Duration
}

// LoadConfig derives the handler settings from the worker's configured job timeout.
func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Config{Timeout: timeout}
}

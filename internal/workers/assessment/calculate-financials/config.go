// internal/workers/assessment/calculate-financials/config.go
package calculatefinancials

import "time"

// Pure computation, no external calls; timeout only bounds job completion.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

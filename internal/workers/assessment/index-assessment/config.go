// internal/workers/assessment/index-assessment/config.go
package indexassessment

import "time"

type Config struct {
	IndexName string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		IndexName: "deal-assessments",
		Timeout:   10 * time.Second,
	}
}

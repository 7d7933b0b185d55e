package config

import (
	"os"
	"strconv"
	"time"
)

type SessionConfig struct {
	Timeout           time.Duration // inactivity budget per session
	TickInterval      time.Duration // countdown cadence
	LoanApprovalDelay time.Duration // simulated bank-side processing latency
	JWTExpiryHours    int
}

func LoadSessionConfig() *SessionConfig {
	return &SessionConfig{
		Timeout:           getEnvAsDuration("SESSION_TIMEOUT", 300*time.Second),
		TickInterval:      getEnvAsDuration("SESSION_TICK_INTERVAL", 1*time.Second),
		LoanApprovalDelay: getEnvAsDuration("LOAN_APPROVAL_DELAY", 1500*time.Millisecond),
		JWTExpiryHours:    getEnvAsInt("JWT_EXPIRY_HOURS", 24),
	}
}

// TimeoutSeconds is the countdown start value handed to new sessions.
func (c *SessionConfig) TimeoutSeconds() int {
	return int(c.Timeout / time.Second)
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

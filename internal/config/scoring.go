package config

import "time"

// ScoringConfig tunes the multiplier batch job and the bump action.
type ScoringConfig struct {
	BatchSize   int           // scripts per batch invocation
	BatchBudget time.Duration // wall-clock budget per invocation
	BumpWindow  time.Duration // how long a bump stays in effect
}

// LoadScoringConfig reads environment variables to build a ScoringConfig.
func LoadScoringConfig() ScoringConfig {
	return ScoringConfig{
		BatchSize:   envInt("SCORING_BATCH_SIZE", 1000),
		BatchBudget: envDur("SCORING_BATCH_BUDGET", 8*time.Second),
		BumpWindow:  envDur("SCORING_BUMP_WINDOW", 24*time.Hour),
	}
}

package config

import "time"

// Limits carries the operational bounds for the turn pipeline.
type Limits struct {
	MaxInputLength      int              `yaml:"max_input_length" validate:"required,min=1,max=10000"`
	MaxTurnsPerSession  int              `yaml:"max_turns_per_session" validate:"required,min=1,max=10000"`
	HistoryTurns        int              `yaml:"history_turns" validate:"required,min=1,max=50"`
	MaxRetries          int              `yaml:"max_retries" validate:"min=0,max=10"`
	ModerationTimeout   time.Duration    `yaml:"moderation_timeout" validate:"required,min=1s,max=1m"`
	NarrationTimeout    time.Duration    `yaml:"narration_timeout" validate:"required,min=1s,max=5m"`
	IllustrationTimeout time.Duration    `yaml:"illustration_timeout" validate:"required,min=1s,max=5m"`
	RateLimit           RateLimitConfig  `yaml:"rate_limit" validate:"required"`
	ImageCache          ImageCacheConfig `yaml:"image_cache" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

type ImageCacheConfig struct {
	MaxEntries int           `yaml:"max_entries" validate:"required,min=1,max=10000"`
	TTL        time.Duration `yaml:"ttl" validate:"required,min=1m,max=24h"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxInputLength:      500,
		MaxTurnsPerSession:  200,
		HistoryTurns:        5,
		MaxRetries:          2,
		ModerationTimeout:   10 * time.Second,
		NarrationTimeout:    30 * time.Second,
		IllustrationTimeout: 60 * time.Second,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         10,
		},
		ImageCache: ImageCacheConfig{
			MaxEntries: 100,
			TTL:        time.Hour,
		},
	}
}

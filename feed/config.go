package feed

import "time"

type Config struct {
	PageSize             int           `env:"FEED_PAGE_SIZE,default=20" validate:"min=1"`
	MaxPageSize          int           `env:"FEED_MAX_PAGE_SIZE,default=50" validate:"min=1"`
	TopComments          int           `env:"FEED_TOP_COMMENTS,default=3" validate:"min=0"`
	HydrationTimeout     time.Duration `env:"FEED_HYDRATION_TIMEOUT,default=2s"`
	HydrationConcurrency int           `env:"FEED_HYDRATION_CONCURRENCY,default=8"`
	StaleAfter           time.Duration `env:"FEED_STALE_AFTER,default=10m"`
}

func DefaultConfig() Config {
	return Config{
		PageSize:             20,
		MaxPageSize:          50,
		TopComments:          3,
		HydrationTimeout:     2 * time.Second,
		HydrationConcurrency: 8,
		StaleAfter:           10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = defaults.MaxPageSize
	}
	if c.PageSize > c.MaxPageSize {
		c.PageSize = c.MaxPageSize
	}
	if c.TopComments < 0 {
		c.TopComments = defaults.TopComments
	}
	if c.HydrationTimeout <= 0 {
		c.HydrationTimeout = defaults.HydrationTimeout
	}
	if c.HydrationConcurrency <= 0 {
		c.HydrationConcurrency = defaults.HydrationConcurrency
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	return c
}

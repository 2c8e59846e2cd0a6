package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"

	"github.com/snap-point/activity-engine/feed"
	"github.com/snap-point/activity-engine/media"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/observability"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/rewards"
	"github.com/snap-point/activity-engine/scoring"
	"github.com/snap-point/activity-engine/utils"
	"github.com/snap-point/activity-engine/workers"
)

type ServerConfig struct {
	Port      string `env:"PORT,default=8080"`
	JWTSecret string `env:"JWT_SECRET,required" validate:"required"`
	LogMode   string `env:"LOG_MODE,default=dev" validate:"oneof=dev prod production"`
	GinMode   string `env:"GIN_MODE,default=release"`
}

type Config struct {
	Server      ServerConfig          `env:""`
	Database    DatabaseConfig        `env:""`
	Redis       notify.Config         `env:""`
	Media       media.Config          `env:""`
	Tracing     observability.Config  `env:""`
	Feed        feed.Config           `env:""`
	Rewards     rewards.Config        `env:""`
	Progression progression.Config    `env:""`
	Scoring     scoring.Config        `env:""`
	Hotness     workers.HotnessConfig `env:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := utils.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

type DatabaseConfig struct {
	Host        string `env:"DB_HOST,required" validate:"required"`
	User        string `env:"DB_USER,required" validate:"required"`
	Password    string `env:"DB_PASSWORD,required"`
	Name        string `env:"DB_NAME,required" validate:"required"`
	Port        int    `env:"DB_PORT,default=5432" validate:"min=1,max=65535"`
	SSLMode     string `env:"DB_SSLMODE,default=disable"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE,default=true"`
	MaxOpen     int    `env:"DB_MAX_OPEN_CONNS,default=25"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		c.User,
		c.Password,
		net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		c.Name,
		c.SSLMode,
	)
}

// GormConfig is shared by production and tests: duplicate-key errors surface as
// gorm.ErrDuplicatedKey and timestamps are written in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	}
}

func InitDB(cfg DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("database migrated", "tables", len(models.All()))
	}

	return db, nil
}

package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES,default=1048576"`
	SearchLimit       int           `env:"SEARCH_LIMIT,default=20"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort         int           `env:"DEBUG_PORT,default=8081"`
	ReservedNames     []string      `env:"RESERVED_NAMES,default=admin|root|support|moderator|bubble"`

	GCInterval         time.Duration `env:"GC_INTERVAL,default=5m"`
	GCDiscardRatio     float64       `env:"GC_DISCARD_RATIO,default=0.5"`
	PoolReportInterval time.Duration `env:"POOL_REPORT_INTERVAL,default=1m"`
	LowPoolThreshold   int           `env:"LOW_POOL_THRESHOLD,default=5"`
}

const minSecretLength = 32

// Validate checks the values env tags cannot express.
func (c Config) Validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minSecretLength, len(c.JWTSecret))
	}
	if c.AuthTokenDuration <= 0 {
		return fmt.Errorf("AUTH_TOKEN_DURATION must be positive, got %s", c.AuthTokenDuration)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("GC_DISCARD_RATIO must be in (0, 1), got %v", c.GCDiscardRatio)
	}
	if c.GCInterval <= 0 || c.PoolReportInterval <= 0 {
		return fmt.Errorf("GC_INTERVAL and POOL_REPORT_INTERVAL must be positive")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

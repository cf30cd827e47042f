package app

import (
	"github.com/yungbote/repodoc-backend/internal/pkg/envutil"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	}
}

package main

import (
	"fmt"
	"os"
	"time"

	"runpad/internal/common/cache"
	"runpad/internal/common/db"
	"runpad/internal/judge0"
	"runpad/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultCacheTTL        = 300 * time.Second
	defaultJudgeTimeout    = 15 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SubmissionConfig holds submission settings.
type SubmissionConfig struct {
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AppConfig holds submission-service configuration.
type AppConfig struct {
	Server     ServerConfig      `yaml:"server"`
	Logger     logger.Config     `yaml:"logger"`
	MySQL      db.MySQLConfig    `yaml:"mysql"`
	Redis      cache.RedisConfig `yaml:"redis"`
	Judge      judge0.Config     `yaml:"judge"`
	Submission SubmissionConfig  `yaml:"submission"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Submission.CacheTTL == 0 {
		cfg.Submission.CacheTTL = defaultCacheTTL
	}
	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = defaultJudgeTimeout
	}

	return &cfg, nil
}

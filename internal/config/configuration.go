package config

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	// Logging Configuration
	Debug     bool   `mapstructure:"FILTERCHAIN_DEBUG"`
	LogLevel  string `mapstructure:"FILTERCHAIN_LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"FILTERCHAIN_LOG_FORMAT" validate:"oneof=text json"`

	// Image opened at startup
	DefaultImage string `mapstructure:"FILTERCHAIN_DEFAULT_IMAGE" validate:"omitempty,file"`

	// Window Configuration
	WindowWidth  int `mapstructure:"FILTERCHAIN_WINDOW_WIDTH" validate:"gte=320,lte=8192"`
	WindowHeight int `mapstructure:"FILTERCHAIN_WINDOW_HEIGHT" validate:"gte=240,lte=8192"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	typ := reflect.TypeOf(c)

	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			viper.BindEnv(tag)
		}
	}
}

// LoadConfig reads the configuration from the environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("FILTERCHAIN_DEBUG", false)
	viper.SetDefault("FILTERCHAIN_LOG_LEVEL", "info")
	viper.SetDefault("FILTERCHAIN_LOG_FORMAT", "json")
	viper.SetDefault("FILTERCHAIN_WINDOW_WIDTH", 1400)
	viper.SetDefault("FILTERCHAIN_WINDOW_HEIGHT", 900)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Level returns the logrus level; debug mode always wins.
func (c *Config) Level() logrus.Level {
	if c.Debug {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Package config loads the callback service configuration from the
// environment. Variables are prefixed DIBS_ and nested keys use double
// underscores, e.g. DIBS_FLEXWIN__MD5_KEY1. A .env file in the working
// directory is loaded automatically.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"

	"github.com/inteleon/dibs-go/dibs"
	"github.com/inteleon/dibs-go/flexwin"
	"github.com/inteleon/dibs-go/paywin"
)

type Config struct {
	Primary   Primary         `koanf:"primary"`
	Server    ServerConfig    `koanf:"server"`
	Merchant  MerchantConfig  `koanf:"merchant"`
	FlexWin   FlexWinConfig   `koanf:"flexwin"`
	PayWin    PayWinConfig    `koanf:"paywin"`
	Transport TransportConfig `koanf:"transport"`
	Database  DatabaseConfig  `koanf:"database"`
	Logger    LoggerConfig    `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

// MerchantConfig holds the settings shared by both protocol generations.
type MerchantConfig struct {
	ID              string `koanf:"id" validate:"required"`
	Currency        string `koanf:"currency" validate:"required"`
	Language        string `koanf:"language"`
	AcceptReturnURL string `koanf:"accept_return_url"`
	CancelReturnURL string `koanf:"cancel_return_url"`
	CallbackURL     string `koanf:"callback_url"`
	Test            bool   `koanf:"test"`
}

// FlexWinConfig holds the legacy protocol secrets: the two MD5 digest keys
// and the cgi-adm login.
type FlexWinConfig struct {
	MD5Key1       string `koanf:"md5_key1" validate:"required"`
	MD5Key2       string `koanf:"md5_key2" validate:"required"`
	LoginUser     string `koanf:"login_user"`
	LoginPassword string `koanf:"login_password"`

	SkipResponseVerification bool `koanf:"skip_response_verification"`
}

// PayWinConfig holds the JSON protocol secret: the hex-encoded HMAC key.
type PayWinConfig struct {
	HMACKey string `koanf:"hmac_key" validate:"required"`
}

type TransportConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// InsecureSkipVerify disables TLS certificate verification. Test
	// environments only.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`
}

// DatabaseConfig is optional: the callback journal is only started when a
// host is configured.
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("DIBS_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "DIBS_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// NewLogger builds the service logger from the configured level. Unknown or
// empty levels fall back to info.
func (c *LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// FlexWinClientConfig maps the environment settings onto the legacy protocol
// client configuration.
func (c *Config) FlexWinClientConfig() flexwin.Config {
	return flexwin.Config{
		MerchantID:               c.Merchant.ID,
		MD5Key1:                  c.FlexWin.MD5Key1,
		MD5Key2:                  c.FlexWin.MD5Key2,
		LoginUser:                c.FlexWin.LoginUser,
		LoginPassword:            c.FlexWin.LoginPassword,
		AcceptReturnURL:          c.Merchant.AcceptReturnURL,
		CancelReturnURL:          c.Merchant.CancelReturnURL,
		CallbackURL:              c.Merchant.CallbackURL,
		Currency:                 c.Merchant.Currency,
		Language:                 c.Merchant.Language,
		Test:                     c.Merchant.Test,
		SkipResponseVerification: c.FlexWin.SkipResponseVerification,
	}
}

// PayWinClientConfig maps the environment settings onto the JSON protocol
// client configuration.
func (c *Config) PayWinClientConfig() paywin.Config {
	return paywin.Config{
		MerchantID:      c.Merchant.ID,
		HMACKey:         c.PayWin.HMACKey,
		AcceptReturnURL: c.Merchant.AcceptReturnURL,
		CancelReturnURL: c.Merchant.CancelReturnURL,
		CallbackURL:     c.Merchant.CallbackURL,
		Currency:        c.Merchant.Currency,
		Language:        c.Merchant.Language,
		Test:            c.Merchant.Test,
	}
}

// TransportOptions maps the configured timeouts onto the default transport.
func (c *Config) TransportOptions() dibs.TransportOptions {
	return dibs.TransportOptions{
		Timeout:            c.Transport.Timeout,
		ConnectTimeout:     c.Transport.ConnectTimeout,
		InsecureSkipVerify: c.Transport.InsecureSkipVerify,
	}
}

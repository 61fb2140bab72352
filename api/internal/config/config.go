package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr" validate:"required"`
	Env            string        `mapstructure:"env" validate:"omitempty,oneof=dev prod"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" validate:"dive,url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

type AuthConfig struct {
	SecretKey              string        `mapstructure:"secret_key"`
	Google                 GoogleConfig  `mapstructure:"google"`
	FrontendURL            string        `mapstructure:"frontend_url" validate:"omitempty,url"`
	TokenTTL               time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	RequireForProcess      bool          `mapstructure:"require_for_process"`
	AllowPasswordlessLogin bool          `mapstructure:"allow_passwordless_login"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" validate:"omitempty,url"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Need names a group of settings a binary cannot run without.
type Need int

const (
	NeedGemini Need = iota
	NeedDatabase
	NeedAuth
	NeedTelegram
)

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

// envBindings maps config keys to the environment variables the deployment uses.
var envBindings = map[string]string{
	"server.env":                    "APP_ENV",
	"gemini.api_key":                "GEMINI_API_KEY",
	"gemini.model":                  "GEMINI_MODEL",
	"database.url":                  "DATABASE_URL",
	"database.host":                 "PGHOST",
	"database.port":                 "PGPORT",
	"database.user":                 "POSTGRES_USER",
	"database.password":             "POSTGRES_PASSWORD",
	"database.name":                 "POSTGRES_DB",
	"auth.secret_key":               "SECRET_KEY",
	"auth.google.client_id":         "GOOGLE_CLIENT_ID",
	"auth.google.client_secret":     "GOOGLE_CLIENT_SECRET",
	"auth.google.redirect_url":      "REDIRECT_URI",
	"auth.frontend_url":             "FRONTEND_URL",
	"auth.require_for_process":      "AUTH_REQUIRE_FOR_PROCESS",
	"auth.allow_passwordless_login": "AUTH_ALLOW_PASSWORDLESS_LOGIN",
	"telegram.bot_token":            "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url":          "WEBHOOK_URL",
	"log.level":                     "LOG_LEVEL",
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/drawcal")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.addr", ":8900")
	v.SetDefault("server.env", "dev")
	v.SetDefault("server.request_timeout", 180*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("auth.frontend_url", "http://localhost:5173")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	// platform PORT wins over the configured address
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Server.Addr = ":" + p
	}

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

// Load reads configuration from configFile (or the default search paths) and the environment.
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

// Require reports every missing setting for the given needs in one error.
func (c *Config) Require(needs ...Need) error {
	var missing []string
	for _, n := range needs {
		switch n {
		case NeedGemini:
			if strings.TrimSpace(c.Gemini.APIKey) == "" {
				missing = append(missing, "gemini.api_key (GEMINI_API_KEY)")
			}
		case NeedDatabase:
			if c.Database.DSN() == "" {
				missing = append(missing, "database.url (DATABASE_URL) or database.host (PGHOST)")
			}
		case NeedAuth:
			if strings.TrimSpace(c.Auth.SecretKey) == "" {
				missing = append(missing, "auth.secret_key (SECRET_KEY)")
			}
		case NeedTelegram:
			if strings.TrimSpace(c.Telegram.BotToken) == "" {
				missing = append(missing, "telegram.bot_token (TELEGRAM_BOT_TOKEN)")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GoogleEnabled reports whether the Google sign-in flow is configured.
func (a AuthConfig) GoogleEnabled() bool {
	return a.Google.ClientID != "" && a.Google.ClientSecret != "" && a.Google.RedirectURL != ""
}

// DSN prefers database.url and otherwise builds a postgres URL from the
// individual fields. Empty when no database is configured.
func (d DatabaseConfig) DSN() string {
	if v := strings.TrimSpace(d.URL); v != "" {
		return v
	}
	host := strings.TrimSpace(d.Host)
	if host == "" {
		return ""
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

package config

import (
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	AuthModeToken   = "token"
	AuthModeSession = "session"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Environment  string `yaml:"environment"` // "development" | "production"
	Port         int    `yaml:"port"`
	ClientOrigin string `yaml:"client_origin"`

	AuthMode      string        `yaml:"auth_mode"` // "token" | "session"
	JwtTTL        time.Duration `yaml:"jwt_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`

	RequireOtp             bool    `yaml:"require_otp"`
	OtpExpiryMinutes       int     `yaml:"otp_expiry_minutes"`
	OtpResendWindowSeconds int     `yaml:"otp_resend_window_seconds"`
	OtpMaxAttempts         int     `yaml:"otp_max_attempts"`
	RateLimitPerMinute     float64 `yaml:"rate_limit_per_minute"`
	RateLimitBurst         float64 `yaml:"rate_limit_burst"`

	LogLevel  string `yaml:"log_level"`
	LogAsJSON bool   `yaml:"log_as_json"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Smtp struct {
	Server     string `yaml:"server"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type EmailAPI struct {
	URL        string `yaml:"url"`
	Key        string `yaml:"key"`
	Sender     string `yaml:"sender"`
	SenderName string `yaml:"sender_name"`
}

type Private struct {
	Pg         Pg       `yaml:"pg"`
	JwtKey     string   `yaml:"jwt_key"`
	SessionKey string   `yaml:"session_key"`
	SeedEmail  string   `yaml:"seed_email"`
	SeedPass   string   `yaml:"seed_password"`
	Smtp       Smtp     `yaml:"smtp"`
	EmailAPI   EmailAPI `yaml:"email_api"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

func (c *Config) IsProduction() bool {
	return c.Public.Environment == "production"
}

func (c *Config) OtpExpiry() time.Duration {
	return time.Duration(c.Public.OtpExpiryMinutes) * time.Minute
}

func (c *Config) OtpResendWindow() time.Duration {
	return time.Duration(c.Public.OtpResendWindowSeconds) * time.Second
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Public.Port == 0 {
		c.Public.Port = 4000
	}
	if c.Public.AuthMode == "" {
		c.Public.AuthMode = AuthModeToken
	}
	if c.Public.JwtTTL == 0 {
		c.Public.JwtTTL = time.Hour
	}
	if c.Public.OtpExpiryMinutes == 0 {
		c.Public.OtpExpiryMinutes = 10
	}
	if c.Public.OtpResendWindowSeconds == 0 {
		c.Public.OtpResendWindowSeconds = 60
	}
	if c.Public.OtpMaxAttempts == 0 {
		c.Public.OtpMaxAttempts = 5
	}
	if c.Public.RateLimitPerMinute == 0 {
		c.Public.RateLimitPerMinute = 60
	}
	if c.Public.RateLimitBurst == 0 {
		c.Public.RateLimitBurst = 10
	}
}

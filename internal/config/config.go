package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Partner    PartnerConfig   `mapstructure:"partner"`
	Forward    ForwardConfig   `mapstructure:"forward"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port"`
}

// ListenAddr prefers an explicit addr; otherwise binds the configured port.
func (h HTTPConfig) ListenAddr() string {
	if h.Addr != "" {
		return h.Addr
	}
	port := h.Port
	if port <= 0 {
		port = 3000
	}
	return fmt.Sprintf(":%d", port)
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"`
}

// PartnerConfig describes the downstream Lumitel endpoint and the static
// service credentials embedded in every forward envelope.
type PartnerConfig struct {
	URL       string        `mapstructure:"url"`
	User      string        `mapstructure:"user"`
	Pass      string        `mapstructure:"pass"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type ForwardConfig struct {
	DelayMs int `mapstructure:"delay_ms"`
}

// Delay returns the configured forward delay, defaulting to 2s.
func (f ForwardConfig) Delay() time.Duration {
	if f.DelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(f.DelayMs) * time.Millisecond
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env
// overrides (USSDBR_*). The flat env names the gateway operators already export
// (PORT, PARTNER_URL, ...) are bound explicitly.
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (USSDBR_*)
	v.SetEnvPrefix("USSDBR")
	v.AutomaticEnv()

	// legacy flat env names
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("partner.url", "PARTNER_URL")
	_ = v.BindEnv("partner.user", "PARTNER_USER")
	_ = v.BindEnv("partner.pass", "PARTNER_PASS")
	_ = v.BindEnv("forward.delay_ms", "FORWARD_DELAY_MS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

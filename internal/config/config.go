package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// EventsPerMinute caps inbound socket events per session. Zero disables the limit.
	EventsPerMinute int `mapstructure:"events_per_minute" yaml:"events_per_minute"`

	// ServerID identifies this process in logs. Generated when empty.
	ServerID string `mapstructure:"server_id" yaml:"server_id"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	CookieName  string        `mapstructure:"cookie_name" yaml:"cookie_name"`

	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Bus      BusConfig      `mapstructure:"bus" yaml:"bus"`
}

// RedisConfig describes the shared Redis used by the presence store and the redis bus.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// PresenceConfig configures the shared online list.
type PresenceConfig struct {
	Key          string `mapstructure:"key" yaml:"key"`
	ResetOnStart bool   `mapstructure:"reset_on_start" yaml:"reset_on_start"`
}

// BusConfig selects and configures the fanout bus driver.
type BusConfig struct {
	Driver  string `mapstructure:"driver" yaml:"driver"` // "redis" or "nats"
	Channel string `mapstructure:"channel" yaml:"channel"`
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
}

const (
	BusDriverRedis = "redis"
	BusDriverNATS  = "nats"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   1 << 16,
		EventsPerMinute:   120,
		LogLevel:          "info",
		DatabasePath:      "wirechat-presence.db",
		JWTSecret:         "change-me",
		JWTTTL:            24 * time.Hour,
		CookieName:        "token",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Presence: PresenceConfig{
			Key: "users",
		},
		Bus: BusConfig{
			Driver:  BusDriverRedis,
			Channel: "chatroom",
			NATSURL: "nats://localhost:4222",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.ServerID != "" {
		c.ServerID = other.ServerID
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
	if other.Bus.Driver != "" {
		c.Bus.Driver = other.Bus.Driver
	}
	if other.Bus.NATSURL != "" {
		c.Bus.NATSURL = other.Bus.NATSURL
	}
}

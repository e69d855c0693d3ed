package config

import "time"

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// HandshakeTimeout bounds how long an unauthenticated socket may stay open.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	JWT     JWTConfig     `mapstructure:"jwt" yaml:"jwt"`
	WS      WSConfig      `mapstructure:"ws" yaml:"ws"`
	Breaker BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// StorageConfig selects the message store backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// JWTConfig configures bearer credential verification.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// WSConfig holds realtime connection limits.
type WSConfig struct {
	MaxMessageBytes int64   `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendBuffer      int     `mapstructure:"send_buffer" yaml:"send_buffer"`
	RatePerSecond   float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	RateBurst       int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// BreakerConfig tunes the circuit breaker in front of the store.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "wiredm.db",
		},
		JWT: JWTConfig{
			Secret: "change-me",
			TTL:    24 * time.Hour,
		},
		WS: WSConfig{
			MaxMessageBytes: 64 << 10,
			SendBuffer:      32,
			RatePerSecond:   10,
			RateBurst:       20,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			OpenTimeout:      10 * time.Second,
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
	if other.HandshakeTimeout != 0 {
		c.HandshakeTimeout = other.HandshakeTimeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Storage.Driver != "" {
		c.Storage.Driver = other.Storage.Driver
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.JWT.Secret != "" {
		c.JWT.Secret = other.JWT.Secret
	}
	if other.JWT.Issuer != "" {
		c.JWT.Issuer = other.JWT.Issuer
	}
	if other.JWT.Audience != "" {
		c.JWT.Audience = other.JWT.Audience
	}
	if other.JWT.TTL != 0 {
		c.JWT.TTL = other.JWT.TTL
	}
	if other.WS.MaxMessageBytes != 0 {
		c.WS.MaxMessageBytes = other.WS.MaxMessageBytes
	}
	if other.WS.SendBuffer != 0 {
		c.WS.SendBuffer = other.WS.SendBuffer
	}
	if other.WS.RatePerSecond != 0 {
		c.WS.RatePerSecond = other.WS.RatePerSecond
	}
	if other.WS.RateBurst != 0 {
		c.WS.RateBurst = other.WS.RateBurst
	}
	if other.Breaker.FailureThreshold != 0 {
		c.Breaker.FailureThreshold = other.Breaker.FailureThreshold
	}
	if other.Breaker.OpenTimeout != 0 {
		c.Breaker.OpenTimeout = other.Breaker.OpenTimeout
	}
}

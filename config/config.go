package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"binxfer/transfer"

	"github.com/spf13/viper"
)

const (
	DefaultPort    = 1234
	DefaultIP      = "127.0.0.1"
	DefaultRetries = 3
	ServiceType    = "_binxfer._tcp"
	EnvPrefix      = "BINXFER"
	DefaultTheme   = "dark"
	DefaultLogLvl  = "info"
	DefaultLogFmt  = "console"
)

var (
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
	ErrMissingPath      = errors.New("path must be set")
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Path        string `mapstructure:"path"`
	ChunkSize   int    `mapstructure:"chunk-size"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	MetricsAddr string `mapstructure:"metrics-addr"`
	Advertise   bool   `mapstructure:"advertise"`
	Watch       bool   `mapstructure:"watch"`
}

// ClientConfig holds the client configuration.
type ClientConfig struct {
	IP        string `mapstructure:"ip"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	ChunkSize int    `mapstructure:"chunk-size"`
	Retries   int    `mapstructure:"retries"`
	Theme     string `mapstructure:"theme"`
	Discover  bool   `mapstructure:"discover"`
	PerfLog   string `mapstructure:"perf-log"`
	LogLevel  string `mapstructure:"log-level"`
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      DefaultPort,
		Path:      ".",
		ChunkSize: transfer.DefaultChunkSize,
		LogLevel:  DefaultLogLvl,
		LogFormat: DefaultLogFmt,
	}
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		IP:        DefaultIP,
		Port:      DefaultPort,
		Path:      ".",
		ChunkSize: transfer.DefaultChunkSize,
		Retries:   DefaultRetries,
		Theme:     DefaultTheme,
		LogLevel:  "warn",
	}
}

// Validate ensures the server configuration is usable.
func (c *ServerConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	return validateDir(c.Path)
}

// Validate ensures the client configuration is usable.
func (c *ClientConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	if c.IP == "" && !c.Discover {
		return errors.New("server address must be set")
	}
	return validateDir(c.Path)
}

// Addr returns the host:port the client dials.
func (c *ClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return nil
}

func validateDir(path string) error {
	if path == "" {
		return ErrMissingPath
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", path)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// NewViper returns a viper instance reading BINXFER_* variables and, when
// file is set, that config file.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// LoadServer decodes v over the server defaults. Keys are the long flag names.
func LoadServer(v *viper.Viper) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	v.SetDefault("port", cfg.Port)
	v.SetDefault("path", cfg.Path)
	v.SetDefault("chunk-size", cfg.ChunkSize)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("log-format", cfg.LogFormat)
	v.SetDefault("metrics-addr", cfg.MetricsAddr)
	v.SetDefault("advertise", cfg.Advertise)
	v.SetDefault("watch", cfg.Watch)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadClient decodes v over the client defaults.
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	v.SetDefault("ip", cfg.IP)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("path", cfg.Path)
	v.SetDefault("chunk-size", cfg.ChunkSize)
	v.SetDefault("retries", cfg.Retries)
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("discover", cfg.Discover)
	v.SetDefault("perf-log", cfg.PerfLog)
	v.SetDefault("log-level", cfg.LogLevel)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode client config: %w", err)
	}
	return cfg, cfg.Validate()
}

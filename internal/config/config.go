package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ModeMulticast = "multicast"
	ModeBroadcast = "broadcast"
	ModeUnicast   = "unicast"
)

var (
	ErrInvalidPort       = errors.New("port out of range")
	ErrInvalidBufferSize = errors.New("buffer size must be positive")
	ErrUnknownMode       = errors.New("unknown transport mode")
)

type Config struct {
	Env            string    `yaml:"env" env-default:"local" env:"ENV"`
	Name           string    `yaml:"name" env:"NAME"`
	HistoryPath    string    `yaml:"history_path" env-default:"udpchat.db" env:"HISTORY_PATH"`
	HideOwn        bool      `yaml:"hide_own" env:"HIDE_OWN"`
	NotifierBuffer int       `yaml:"notifier_buffer" env-default:"64" env:"NOTIFIER_BUFFER"`
	Transport      Transport `yaml:"transport"`
}

// Transport - фиксированная сетевая конфигурация, в рантайме не меняется
type Transport struct {
	Mode              string `yaml:"mode" env-default:"multicast" env:"TRANSPORT_MODE"`
	Address           string `yaml:"address" env-default:"228.28.28.28" env:"TRANSPORT_ADDRESS"`
	Port              int    `yaml:"port" env-default:"6789" env:"TRANSPORT_PORT"`
	BufferSize        int    `yaml:"buffer_size" env-default:"100" env:"TRANSPORT_BUFFER_SIZE"`
	DefaultInterface  string `yaml:"default_interface" env:"TRANSPORT_DEFAULT_INTERFACE"`
	DiscoverInterface bool   `yaml:"discover_interface" env-default:"true" env:"TRANSPORT_DISCOVER_INTERFACE"`
	MulticastTTL      int    `yaml:"multicast_ttl" env-default:"1" env:"TRANSPORT_MULTICAST_TTL"`
}

func (t Transport) Validate() error {
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, t.Port)
	}
	if t.BufferSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBufferSize, t.BufferSize)
	}
	switch t.Mode {
	case ModeMulticast, ModeBroadcast, ModeUnicast:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, t.Mode)
	}
	return nil
}

func (c *Config) Validate() error {
	return c.Transport.Validate()
}

// Load читает конфигурацию из файла, а без файла - из окружения и значений по умолчанию
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read env config: %w", err)
		}
	} else {
		// check if file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePath returns the config path.
// Priority: flag > env > default.
// default value is empty string.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	StudioAPI  StudioAPIConfig  `mapstructure:"studio_api"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      int           `mapstructure:"rate_limit"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	DeduperTTL time.Duration `mapstructure:"deduper_ttl"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

type RepositoryConfig struct {
	Type       string `mapstructure:"type"` // "postgres" или "inmemory"
	StorageKey string `mapstructure:"storage_key"`
}

type StudioAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Location        string        `mapstructure:"location"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.deduper_ttl", 24*time.Hour)

	v.SetDefault("logging.development", false)

	v.SetDefault("repository.type", "inmemory")
	v.SetDefault("repository.storage_key", "studiosync_kanban_v1")

	v.SetDefault("studio_api.base_url", "http://localhost:8000/api")
	v.SetDefault("studio_api.token", "")
	v.SetDefault("studio_api.timeout", 15*time.Second)

	v.SetDefault("schedule.refresh_interval", 5*time.Minute)
	v.SetDefault("schedule.location", "Local")
}

// Load читает config.yml из текущей директории (или path, если задан);
// переменные окружения STUDIOSYNC_* перекрывают значения из файла.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STUDIOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("чтение конфига: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфига: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для repository.type=postgres")
		}
	default:
		return fmt.Errorf("неизвестный repository.type: %q", c.Repository.Type)
	}

	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit должен быть больше нуля, получено %d", c.Server.RateLimit)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout должен быть больше нуля, получено %s", c.Server.RequestTimeout)
	}

	if c.StudioAPI.BaseURL == "" {
		return errors.New("studio_api.base_url не может быть пустым")
	}
	if c.StudioAPI.Timeout <= 0 {
		return fmt.Errorf("studio_api.timeout должен быть больше нуля, получено %s", c.StudioAPI.Timeout)
	}
	if c.Repository.StorageKey == "" {
		return errors.New("repository.storage_key не может быть пустым")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// ScheduleLocation возвращает часовой пояс, в котором считаются недели.
func (c *Config) ScheduleLocation() (*time.Location, error) {
	if c.Schedule.Location == "" || c.Schedule.Location == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Location)
}

// Package config загружает конфигурацию сервера и клиента из TOML файла
// с переопределением через переменные окружения CHATSYNC_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/iudanet/chatsync/internal/ratelimit"
)

// Duration обертка над time.Duration для записи в TOML строкой ("30s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalText разбирает строку длительности.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText возвращает строковое представление длительности.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config корневая конфигурация
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	JWT       JWTConfig       `toml:"jwt"`
	Realtime  RealtimeConfig  `toml:"realtime"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Redis     RedisConfig     `toml:"redis"`
	Log       LogConfig       `toml:"log"`
	Client    ClientConfig    `toml:"client"`
}

// ServerConfig HTTP сервер
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// StorageConfig серверное хранилище
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// JWTConfig проверка токенов доступа
type JWTConfig struct {
	Secret string   `toml:"secret"`
	TTL    Duration `toml:"ttl"`
}

// RealtimeConfig параметры websocket соединений
type RealtimeConfig struct {
	SendBuffer      int      `toml:"send_buffer"`      // кадров в очереди соединения
	IdleTimeout     Duration `toml:"idle_timeout"`     // отключать соединения без активности
	JanitorInterval Duration `toml:"janitor_interval"` // период проверки неактивных соединений
	PingInterval    Duration `toml:"ping_interval"`    // heartbeat
	WriteTimeout    Duration `toml:"write_timeout"`
}

// LimitConfig лимит одного класса эндпоинтов
type LimitConfig struct {
	Window Duration `toml:"window"`
	Max    int      `toml:"max"`
}

// RateLimitConfig лимиты запросов
type RateLimitConfig struct {
	Store   string      `toml:"store"` // memory | redis
	Idle    Duration    `toml:"idle"`  // удалять окна без запросов дольше Idle
	Auth    LimitConfig `toml:"auth"`
	Message LimitConfig `toml:"message"`
	Upload  LimitConfig `toml:"upload"`
	Search  LimitConfig `toml:"search"`
	Generic LimitConfig `toml:"generic"`
}

// RedisConfig подключение к Redis для общего хранилища лимитов
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	Prefix   string `toml:"prefix"`
	DB       int    `toml:"db"`
}

// LogConfig логирование
type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
}

// ClientConfig настройки клиента
type ClientConfig struct {
	ServerURL      string   `toml:"server_url"`
	DBPath         string   `toml:"db_path"`
	SyncInterval   Duration `toml:"sync_interval"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	BatchSize      int      `toml:"batch_size"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	limits := ratelimit.DefaultLimits()
	limit := func(c ratelimit.Class) LimitConfig {
		return LimitConfig{Window: Duration{limits[c].Window}, Max: limits[c].Max}
	}

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{15 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Storage: StorageConfig{DBPath: "chatsync.db"},
		JWT:     JWTConfig{TTL: Duration{24 * time.Hour}},
		Realtime: RealtimeConfig{
			SendBuffer:      64,
			IdleTimeout:     Duration{90 * time.Second},
			JanitorInterval: Duration{30 * time.Second},
			PingInterval:    Duration{30 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
		},
		RateLimit: RateLimitConfig{
			Store:   "memory",
			Idle:    Duration{10 * time.Minute},
			Auth:    limit(ratelimit.ClassAuth),
			Message: limit(ratelimit.ClassMessage),
			Upload:  limit(ratelimit.ClassUpload),
			Search:  limit(ratelimit.ClassSearch),
			Generic: limit(ratelimit.ClassGeneric),
		},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "chatsync:ratelimit:"},
		Log:   LogConfig{Level: "info", Format: "text"},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			DBPath:         "chatsync-client.db",
			SyncInterval:   Duration{10 * time.Second},
			RequestTimeout: Duration{30 * time.Second},
			MaxRetries:     3,
			BatchSize:      50,
		},
	}
}

// Load читает конфигурацию из path поверх значений по умолчанию.
// Пустой path или отсутствующий файл означает только значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет адреса и секреты из окружения.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"CHATSYNC_SERVER_ADDR":    &c.Server.Addr,
		"CHATSYNC_DB_PATH":        &c.Storage.DBPath,
		"CHATSYNC_JWT_SECRET":     &c.JWT.Secret,
		"CHATSYNC_RATELIMIT":      &c.RateLimit.Store,
		"CHATSYNC_REDIS_ADDR":     &c.Redis.Addr,
		"CHATSYNC_REDIS_PASSWORD": &c.Redis.Password,
		"CHATSYNC_LOG_LEVEL":      &c.Log.Level,
		"CHATSYNC_LOG_FORMAT":     &c.Log.Format,
		"CHATSYNC_SERVER_URL":     &c.Client.ServerURL,
		"CHATSYNC_CLIENT_DB":      &c.Client.DBPath,
	}
	for name, dst := range overrides {
		if value, ok := lookup(name); ok && value != "" {
			*dst = value
		}
	}
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	var errs []error

	if c.Realtime.SendBuffer <= 0 {
		errs = append(errs, errors.New("realtime.send_buffer must be positive"))
	}
	if c.Realtime.IdleTimeout.Duration <= 0 {
		errs = append(errs, errors.New("realtime.idle_timeout must be positive"))
	}
	if c.Realtime.PingInterval.Duration <= 0 || c.Realtime.PingInterval.Duration >= c.Realtime.IdleTimeout.Duration {
		errs = append(errs, errors.New("realtime.ping_interval must be positive and shorter than idle_timeout"))
	}

	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("ratelimit.store must be memory or redis, got %q", c.RateLimit.Store))
	}
	for class, limit := range c.Limits() {
		if !limit.Valid() {
			errs = append(errs, fmt.Errorf("ratelimit.%s: window and max must be positive", class))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if c.Client.MaxRetries <= 0 {
		errs = append(errs, errors.New("client.max_retries must be positive"))
	}
	if c.Client.BatchSize <= 0 {
		errs = append(errs, errors.New("client.batch_size must be positive"))
	}

	return errors.Join(errs...)
}

// Limits возвращает лимиты по классам для ratelimit.New.
func (c *Config) Limits() map[ratelimit.Class]ratelimit.Limit {
	convert := func(l LimitConfig) ratelimit.Limit {
		return ratelimit.Limit{Window: l.Window.Duration, Max: l.Max}
	}
	return map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassAuth:    convert(c.RateLimit.Auth),
		ratelimit.ClassMessage: convert(c.RateLimit.Message),
		ratelimit.ClassUpload:  convert(c.RateLimit.Upload),
		ratelimit.ClassSearch:  convert(c.RateLimit.Search),
		ratelimit.ClassGeneric: convert(c.RateLimit.Generic),
	}
}

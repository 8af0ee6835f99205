// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Scheduler               `yaml:"scheduler"`
	WhatsApp                `yaml:"whatsapp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"` // запросов в секунду к административному API
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для проверки jwt-токенов администраторов
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Scheduler настройки планировщика истечения подписок
type Scheduler struct {
	Schedule          string        `yaml:"schedule" env-default:"@every 6h"`
	Timezone          string        `yaml:"timezone" env-default:"America/Sao_Paulo"`
	ReminderDays      []int         `yaml:"reminder_days" env-default:"5,3,2,1,0"`
	TesterGracePeriod time.Duration `yaml:"tester_grace_period" env-default:"3h"`
	TransitionPolicy  string        `yaml:"transition_policy" env-default:"notify-attempt"`
	LockTTL           time.Duration `yaml:"lock_ttl" env-default:"1h"`
	SkipInitialRun    bool          `yaml:"skip_initial_run"`
}

// Политики перевода подписки в EXPIRED.
const (
	// TransitionAfterNotifyAttempt подписка истекает только если уведомление было отправлено (успешно или нет).
	TransitionAfterNotifyAttempt = "notify-attempt"
	// TransitionAlways подписка истекает независимо от того, отправлялось ли уведомление.
	TransitionAlways = "always"
)

// TransitionRequiresNotifyAttempt сообщает, связан ли перевод в EXPIRED с попыткой уведомления.
func (s Scheduler) TransitionRequiresNotifyAttempt() bool {
	return s.TransitionPolicy != TransitionAlways
}

// Validate проверяет значения, которые cleanenv не может проверить сам.
func (s Scheduler) Validate() error {
	switch s.TransitionPolicy {
	case TransitionAfterNotifyAttempt, TransitionAlways:
		return nil
	default:
		return fmt.Errorf("unknown transition_policy %q, expected %q or %q",
			s.TransitionPolicy, TransitionAfterNotifyAttempt, TransitionAlways)
	}
}

// WhatsApp статические настройки провайдера. Используются только как запасной вариант,
// актуальные учётные данные читаются из таблицы settings перед каждой отправкой.
type WhatsApp struct {
	BaseURL     string        `yaml:"base_url" env-default:"https://api.z-api.io"`
	InstanceID  string        `yaml:"instance_id"`
	Token       string        `yaml:"token"`
	ClientToken string        `yaml:"client_token"`
	Timeout     time.Duration `yaml:"timeout" env-default:"30s"`
	CountryCode string        `yaml:"country_code" env-default:"55"`
}

// MustLoad функция для загрузки конфига из файла, путь к которому задан в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	return &cfg, nil
}

// Location возвращает часовой пояс, в котором считаются календарные дни.
func (s Scheduler) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"Scheduler:\n"+
			"  Schedule: %s\n"+
			"  Timezone: %s\n"+
			"  ReminderDays: %v\n"+
			"  TransitionPolicy: %s\n"+
			"WhatsApp:\n"+
			"  BaseURL: %s\n"+
			"  InstanceID: %s\n"+
			"  Token: %s\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		mask(c.RabbitMQURL),
		c.Schedule,
		c.Timezone,
		c.ReminderDays,
		c.TransitionPolicy,
		c.BaseURL,
		c.InstanceID,
		mask(c.Token),
	)
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Carrier  CarrierConfig  `yaml:"carrier"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	CurrentStatusTTLSeconds int `yaml:"current_status_ttl_seconds"`
}

type CarrierConfig struct {
	Mode           string `yaml:"mode"` // "correios" | "fake"
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username"`
	AccessCode     string `yaml:"access_code"`
	PostcardNumber string `yaml:"postcard_number"`

	TokenTTLSeconds       int `yaml:"token_ttl_seconds"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	RetryMaxAttempts    int `yaml:"retry_max_attempts"`
	RetryInitialDelayMs int `yaml:"retry_initial_delay_ms"`
	RetryMaxDelayMs     int `yaml:"retry_max_delay_ms"`

	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

type WorkerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Timezone string `yaml:"timezone"`

	// Окна расписания (5 полей cron). Если пусто, берутся значения по умолчанию.
	BaselineCron string `yaml:"baseline_cron"`
	PeakCron     string `yaml:"peak_cron"`

	Concurrency            int `yaml:"concurrency"`
	FailureThreshold       int `yaml:"failure_threshold"`
	FailureBaseWaitSeconds int `yaml:"failure_base_wait_seconds"`

	NotifyDedupTTLSeconds int `yaml:"notify_dedup_ttl_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

func (c *Config) DatabaseDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Queues struct {
		Backend   string `envconfig:"QUEUE_BACKEND" default:"redis"`
		FactCheck string `envconfig:"FACTCHECK_QUEUE_KEY" default:"factcheck_jobs"`
		AMQPURL   string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Voting struct {
		WindowHours    int           `envconfig:"VOTING_WINDOW_HOURS" default:"24"`
		CloserInterval time.Duration `envconfig:"VOTING_CLOSER_INTERVAL" default:"1m"`
		CloserBatch    int           `envconfig:"VOTING_CLOSER_BATCH" default:"50"`
	} `envconfig:""`

	Limits struct {
		Leaderboard int `envconfig:"LEADERBOARD_SIZE" default:"10"`
		PageSize    int `envconfig:"PAGE_SIZE" default:"20"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

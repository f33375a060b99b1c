package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"debate-arena/internal/adapters/factcheck"
	"debate-arena/internal/adapters/repo"
	"debate-arena/internal/domain"
	"debate-arena/internal/infra/config"
	"debate-arena/internal/infra/db"
	applog "debate-arena/internal/infra/log"
	"debate-arena/internal/infra/metrics"
	"debate-arena/internal/infra/openai"
	"debate-arena/internal/infra/queue"
	feeduc "debate-arena/internal/usecase/feed"
	trustuc "debate-arena/internal/usecase/trust"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "factcheck-worker")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var jobs domain.FactCheckQueue
	switch cfg.Queues.Backend {
	case "amqp":
		amqpQueue, err := queue.NewAMQPFactCheckQueue(cfg.Queues.AMQPURL, cfg.Queues.FactCheck)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: нет подключения к AMQP")
		}
		defer amqpQueue.Close()
		jobs = amqpQueue
	default:
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("worker: не задан REDIS_ADDR")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		jobs = queue.NewRedisFactCheckQueue(redisClient, cfg.Queues.FactCheck)
	}

	var checker domain.FactChecker
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		checker = factcheck.NewOpenAI(client, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	} else {
		logger.Warn().Msg("worker: ключ OpenAI не задан, используется эвристика")
		checker = factcheck.NewSimple()
	}

	trustSvc := trustuc.NewService(repoAdapter, repoAdapter, nil, logger.With().Str("component", "trust").Logger())
	feedSvc := feeduc.NewService(repoAdapter, repoAdapter, repoAdapter, trustSvc, jobs, logger.With().Str("component", "feed").Logger())

	logger.Info().Str("backend", cfg.Queues.Backend).Msg("worker: старт")
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("worker: остановка")
				return
			}
			logger.Error().Err(err).Msg("worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}
		processJob(ctx, logger, feedSvc, checker, job)
	}
}

func processJob(ctx context.Context, logger zerolog.Logger, feedSvc *feeduc.Service, checker domain.FactChecker, job domain.FactCheckJob) {
	content, err := feedSvc.ContentFor(ctx, job)
	if err != nil {
		logger.Error().Err(err).Str("job", job.ID).Msg("worker: цель проверки недоступна")
		return
	}
	verdict, err := checker.Check(ctx, content)
	if err != nil {
		logger.Error().Err(err).Str("job", job.ID).Msg("worker: проверка не выполнена")
		return
	}
	if err := feedSvc.ApplyVerdict(ctx, job, verdict); err != nil {
		if errors.Is(err, domain.ErrAlreadyChecked) {
			logger.Debug().Str("job", job.ID).Msg("worker: вердикт уже записан")
			return
		}
		logger.Error().Err(err).Str("job", job.ID).Msg("worker: вердикт не записан")
		return
	}
	logger.Info().Str("job", job.ID).Str("verdict", string(verdict.Status)).Msg("worker: проверка завершена")
}

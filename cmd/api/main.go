package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"debate-arena/internal/adapters/notify"
	"debate-arena/internal/adapters/repo"
	"debate-arena/internal/domain"
	"debate-arena/internal/infra/cache"
	"debate-arena/internal/infra/config"
	"debate-arena/internal/infra/db"
	httpinfra "debate-arena/internal/infra/http"
	applog "debate-arena/internal/infra/log"
	"debate-arena/internal/infra/metrics"
	"debate-arena/internal/infra/queue"
	debateuc "debate-arena/internal/usecase/debate"
	feeduc "debate-arena/internal/usecase/feed"
	trustuc "debate-arena/internal/usecase/trust"
	voteuc "debate-arena/internal/usecase/vote"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var trustCache domain.Cache
	var jobs domain.FactCheckQueue
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		trustCache = cache.NewRedis(redisClient)
		if cfg.Queues.Backend == "redis" {
			jobs = queue.NewRedisFactCheckQueue(redisClient, cfg.Queues.FactCheck)
		}
	}
	if cfg.Queues.Backend == "amqp" {
		amqpQueue, err := queue.NewAMQPFactCheckQueue(cfg.Queues.AMQPURL, cfg.Queues.FactCheck)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к AMQP")
		}
		defer amqpQueue.Close()
		jobs = amqpQueue
	}

	var notifier domain.Notifier
	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к Telegram")
		}
		notifier = notify.NewTelegram(bot, logger.With().Str("component", "notify").Logger())
	}

	votingWindow := time.Duration(cfg.Voting.WindowHours) * time.Hour
	debateSvc := debateuc.NewService(repoAdapter, repoAdapter, repoAdapter, notifier, logger.With().Str("component", "debate").Logger(), votingWindow)
	voteSvc := voteuc.NewService(repoAdapter, repoAdapter, repoAdapter, notifier, logger.With().Str("component", "vote").Logger())
	trustSvc := trustuc.NewService(repoAdapter, repoAdapter, trustCache, logger.With().Str("component", "trust").Logger())
	feedSvc := feeduc.NewService(repoAdapter, repoAdapter, repoAdapter, trustSvc, jobs, logger.With().Str("component", "feed").Logger())

	h := &handlers{
		debates:     debateSvc,
		votes:       voteSvc,
		trust:       trustSvc,
		feed:        feedSvc,
		users:       repoAdapter,
		log:         logger,
		leaderboard: cfg.Limits.Leaderboard,
		pageSize:    cfg.Limits.PageSize,
	}

	srv := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	h.routes(srv.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), addr(cfg.MetricsPort))
	go func() {
		logger.Info().Msg("api: старт")
		if err := srv.Start(addr(cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func addr(port int) string {
	return fmt.Sprintf(":%d", port)
}

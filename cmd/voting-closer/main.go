package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"debate-arena/internal/adapters/notify"
	"debate-arena/internal/adapters/repo"
	"debate-arena/internal/domain"
	"debate-arena/internal/infra/cache"
	"debate-arena/internal/infra/config"
	"debate-arena/internal/infra/db"
	applog "debate-arena/internal/infra/log"
	"debate-arena/internal/infra/metrics"
	voteuc "debate-arena/internal/usecase/vote"
)

// closeOnceTTL защищает от повторного закрытия одних дебатов
// несколькими экземплярами за короткое окно.
const closeOnceTTL = 10 * time.Minute

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "voting-closer")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("closer: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var once domain.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		once = cache.NewRedis(redisClient)
	}

	var notifier domain.Notifier
	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("closer: нет подключения к Telegram")
		}
		notifier = notify.NewTelegram(bot, logger.With().Str("component", "notify").Logger())
	}

	voteSvc := voteuc.NewService(repoAdapter, repoAdapter, repoAdapter, notifier, logger.With().Str("component", "vote").Logger())

	logger.Info().Dur("interval", cfg.Voting.CloserInterval).Msg("closer: старт")
	ticker := time.NewTicker(cfg.Voting.CloserInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("closer: остановка")
			return
		case <-ticker.C:
			closeExpired(ctx, logger, repoAdapter, voteSvc, once, cfg.Voting.CloserBatch)
		}
	}
}

func closeExpired(ctx context.Context, logger zerolog.Logger, debates domain.DebateRepo, voteSvc *voteuc.Service, once domain.Cache, batch int) {
	expired, err := debates.ListExpiredVoting(ctx, time.Now().UTC(), batch)
	if err != nil {
		logger.Error().Err(err).Msg("closer: ошибка выборки дебатов")
		return
	}
	for _, d := range expired {
		closeFn := func() error {
			_, err := voteSvc.CloseVoting(ctx, d)
			return err
		}
		if once != nil {
			err = once.Once(fmt.Sprintf("voting:close:%d", d.ID), closeOnceTTL, closeFn)
		} else {
			err = closeFn()
		}
		switch {
		case err == nil:
			logger.Info().Int64("debate", d.ID).Msg("closer: голосование закрыто")
		case errors.Is(err, domain.ErrWrongStatus), errors.Is(err, domain.ErrVersionConflict):
			// Уже закрыто конкурентным экземпляром.
			logger.Debug().Int64("debate", d.ID).Msg("closer: дебаты уже закрыты")
		default:
			logger.Error().Err(err).Int64("debate", d.ID).Msg("closer: не удалось закрыть голосование")
		}
	}
}

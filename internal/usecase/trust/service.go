package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

const breakdownCacheTTL = time.Minute

// Breakdown раскрывает составляющие оценки доверия пользователя.
type Breakdown struct {
	UserID           int64            `json:"user_id"`
	Score            float64          `json:"score"`
	Tier             domain.TrustTier `json:"tier"`
	PostsFactChecked int              `json:"posts_fact_checked"`
	PostsVerified    int              `json:"posts_verified"`
	PostsFalse       int              `json:"posts_false"`
	DebatesWon       int              `json:"debates_won"`
	DebatesLost      int              `json:"debates_lost"`
}

// Service реализует движок оценки доверия.
type Service struct {
	users  domain.UserRepo
	events domain.EventRepo
	cache  domain.Cache
	log    zerolog.Logger
}

// NewService создаёт сервис доверия. cache может быть nil.
func NewService(users domain.UserRepo, events domain.EventRepo, cache domain.Cache, logger zerolog.Logger) *Service {
	return &Service{users: users, events: events, cache: cache, log: logger}
}

// RecordFactCheckOutcome учитывает вердикт проверки фактов: счётчик
// проверок растёт всегда, подтверждённые и ложные вердикты меняют
// соответствующие счётчики, оценка пересчитывается атомарно.
func (s *Service) RecordFactCheckOutcome(ctx context.Context, userID int64, status domain.FactCheckStatus) (domain.User, error) {
	if !status.Valid() {
		return domain.User{}, domain.ErrInvalidVerdict
	}
	user, err := s.users.ApplyFactCheckOutcome(ctx, userID, status.CountsVerified(), status.CountsFalse())
	if err != nil {
		return domain.User{}, fmt.Errorf("учёт вердикта: %w", err)
	}
	metrics.IncTrustRecalc()
	s.invalidate(userID)
	if s.events != nil {
		err := s.events.RecordEvent(ctx, domain.DomainEvent{
			Event:    "factcheck_recorded",
			UserID:   &userID,
			Metadata: map[string]any{"status": string(status), "score": user.TrustScore},
		})
		if err != nil {
			s.log.Warn().Err(err).Int64("user", userID).Msg("доверие: событие не записано")
		}
	}
	return user, nil
}

// Recalculate пересчитывает оценку из сохранённых счётчиков.
func (s *Service) Recalculate(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.RecalculateTrustScore(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	metrics.IncTrustRecalc()
	s.invalidate(userID)
	return user, nil
}

// GetBreakdown возвращает составляющие оценки. Результат кэшируется
// на короткое время, кэш сбрасывается при любом изменении счётчиков.
func (s *Service) GetBreakdown(ctx context.Context, userID int64) (Breakdown, error) {
	key := cacheKey(userID)
	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil && len(raw) > 0 {
			var cached Breakdown
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Breakdown{}, err
	}
	breakdown := Breakdown{
		UserID:           user.ID,
		Score:            user.TrustScore,
		Tier:             user.Tier(),
		PostsFactChecked: user.PostsFactChecked,
		PostsVerified:    user.PostsVerified,
		PostsFalse:       user.PostsFalse,
		DebatesWon:       user.DebatesWon,
		DebatesLost:      user.DebatesLost,
	}
	if s.cache != nil {
		if raw, err := json.Marshal(breakdown); err == nil {
			if err := s.cache.Set(key, raw, breakdownCacheTTL); err != nil {
				s.log.Debug().Err(err).Int64("user", userID).Msg("доверие: кэш не обновлён")
			}
		}
	}
	return breakdown, nil
}

// Leaderboard возвращает пользователей с наибольшей оценкой доверия.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.users.ListTopByTrust(ctx, limit)
}

func (s *Service) invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cacheKey(userID)); err != nil {
		s.log.Debug().Err(err).Int64("user", userID).Msg("доверие: кэш не сброшен")
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("trust:breakdown:%d", userID)
}

package vote

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

// Service реализует учёт голосов и определение победителя.
type Service struct {
	users    domain.UserRepo
	debates  domain.DebateRepo
	events   domain.EventRepo
	notifier domain.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис голосования. notifier может быть nil.
func NewService(users domain.UserRepo, debates domain.DebateRepo, events domain.EventRepo, notifier domain.Notifier, logger zerolog.Logger) *Service {
	return &Service{users: users, debates: debates, events: events, notifier: notifier, log: logger, now: time.Now}
}

// CastVote учитывает голос пользователя. Стороны дебатов голосовать
// не могут; повторный голос отклоняется хранилищем.
func (s *Service) CastVote(ctx context.Context, debateID, userID int64, choice domain.VoteChoice) (domain.Debate, error) {
	if !choice.Valid() {
		return domain.Debate{}, domain.ErrInvalidChoice
	}
	d, err := s.debates.GetDebate(ctx, debateID)
	if err != nil {
		return domain.Debate{}, err
	}
	if d.IsParticipant(userID) {
		return domain.Debate{}, domain.ErrParticipantVote
	}
	if d.Status != domain.DebateStatusVoting {
		return domain.Debate{}, domain.ErrWrongStatus
	}
	if d.VotingEndsAt != nil && !s.now().Before(*d.VotingEndsAt) {
		return domain.Debate{}, domain.ErrVotingClosed
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return domain.Debate{}, fmt.Errorf("получение голосующего: %w", err)
	}

	updated, err := s.debates.CastVote(ctx, domain.DebateVote{
		DebateID: debateID,
		UserID:   userID,
		Choice:   choice,
	})
	if err != nil {
		return domain.Debate{}, err
	}
	metrics.IncVoteCast(string(choice))
	s.recordEvent(ctx, "vote_cast", &userID, &debateID, map[string]any{"choice": string(choice)})
	return updated, nil
}

// Totals возвращает счётчики голосов по дебатам.
func (s *Service) Totals(ctx context.Context, debateID int64) (domain.VoteTotals, error) {
	if _, err := s.debates.GetDebate(ctx, debateID); err != nil {
		return domain.VoteTotals{}, err
	}
	return s.debates.GetVoteTotals(ctx, debateID)
}

// ResolveWinner определяет победителя по простому большинству голосов
// за претендента и защитника. Равенство, в том числе нулевое, означает
// ничью: победитель не фиксируется. Голоса за ничью победителя не дают.
func ResolveWinner(d domain.Debate) *int64 {
	switch {
	case d.VotesChallenger > d.VotesDefender:
		id := d.ChallengerID
		return &id
	case d.VotesDefender > d.VotesChallenger:
		id := d.DefenderID
		return &id
	}
	return nil
}

// CloseVoting закрывает голосование: фиксирует победителя, обновляет
// статистику сторон и переводит дебаты в терминальный статус.
// Снимок вызывающего мог устареть между выборкой и закрытием, поэтому
// победитель определяется по свежему состоянию строки; голос, поданный
// после повторного чтения, отсекается проверкой версии в хранилище.
func (s *Service) CloseVoting(ctx context.Context, d domain.Debate) (domain.Debate, error) {
	d, err := s.debates.GetDebate(ctx, d.ID)
	if err != nil {
		return domain.Debate{}, err
	}
	if d.Status != domain.DebateStatusVoting {
		return domain.Debate{}, domain.ErrWrongStatus
	}
	winner := ResolveWinner(d)
	completed, err := s.debates.CompleteDebate(ctx, d.ID, d.Version, winner)
	if err != nil {
		return domain.Debate{}, fmt.Errorf("завершение дебатов: %w", err)
	}
	if winner != nil {
		loser := d.Opponent(*winner)
		if err := s.users.RecordDebateResult(ctx, *winner, loser); err != nil {
			s.log.Error().Err(err).Int64("debate", d.ID).Msg("голосование: статистика сторон не обновлена")
		}
	}
	metrics.IncVotingClosed()
	meta := map[string]any{
		"votes_challenger": d.VotesChallenger,
		"votes_defender":   d.VotesDefender,
		"votes_tie":        d.VotesTie,
	}
	if winner != nil {
		meta["winner_id"] = *winner
	}
	s.recordEvent(ctx, "debate_completed", nil, &d.ID, meta)
	s.notifyCompleted(ctx, completed)
	return completed, nil
}

func (s *Service) notifyCompleted(ctx context.Context, d domain.Debate) {
	if s.notifier == nil {
		return
	}
	challenger, err := s.users.GetUser(ctx, d.ChallengerID)
	if err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("голосование: претендент для уведомления не найден")
		return
	}
	defender, err := s.users.GetUser(ctx, d.DefenderID)
	if err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("голосование: защитник для уведомления не найден")
		return
	}
	if err := s.notifier.DebateCompleted(ctx, d, challenger, defender); err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("голосование: уведомление не отправлено")
	}
}

func (s *Service) recordEvent(ctx context.Context, event string, userID, debateID *int64, meta map[string]any) {
	if s.events == nil {
		return
	}
	err := s.events.RecordEvent(ctx, domain.DomainEvent{
		Event:    event,
		UserID:   userID,
		DebateID: debateID,
		Metadata: meta,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("голосование: событие не записано")
	}
}

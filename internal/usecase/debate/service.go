package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

// submitRetryMax ограничивает повторы при конкурентной подаче аргументов.
const submitRetryMax = 3

// Service реализует машину состояний дебатов.
type Service struct {
	users        domain.UserRepo
	debates      domain.DebateRepo
	events       domain.EventRepo
	notifier     domain.Notifier
	log          zerolog.Logger
	votingWindow time.Duration
	now          func() time.Time
}

// NewService создаёт сервис дебатов. notifier может быть nil.
func NewService(users domain.UserRepo, debates domain.DebateRepo, events domain.EventRepo, notifier domain.Notifier, logger zerolog.Logger, votingWindow time.Duration) *Service {
	if votingWindow <= 0 {
		votingWindow = 24 * time.Hour
	}
	return &Service{
		users:        users,
		debates:      debates,
		events:       events,
		notifier:     notifier,
		log:          logger,
		votingWindow: votingWindow,
		now:          time.Now,
	}
}

// CreateChallenge создаёт вызов на дебаты. Новый вызов всегда ожидает
// ответа защитника: статус PENDING, очередь за претендентом.
func (s *Service) CreateChallenge(ctx context.Context, challengerID, defenderID int64, topic string) (domain.Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" || len([]rune(topic)) > domain.TopicMaxLen {
		return domain.Debate{}, domain.ErrTopicInvalid
	}
	if challengerID == defenderID {
		return domain.Debate{}, domain.ErrSelfChallenge
	}
	challenger, err := s.users.GetUser(ctx, challengerID)
	if err != nil {
		return domain.Debate{}, fmt.Errorf("получение претендента: %w", err)
	}
	defender, err := s.users.GetUser(ctx, defenderID)
	if err != nil {
		return domain.Debate{}, fmt.Errorf("получение защитника: %w", err)
	}

	turn := challengerID
	created, err := s.debates.CreateDebate(ctx, domain.Debate{
		ChallengerID: challengerID,
		DefenderID:   defenderID,
		Topic:        topic,
		Status:       domain.DebateStatusPending,
		CurrentRound: 1,
		WhoseTurnID:  &turn,
	})
	if err != nil {
		return domain.Debate{}, fmt.Errorf("создание дебатов: %w", err)
	}
	metrics.IncDebateCreated()
	s.recordEvent(ctx, "debate_created", &challengerID, &created.ID, map[string]any{"defender_id": defenderID})
	if s.notifier != nil {
		if err := s.notifier.ChallengeCreated(ctx, created, challenger, defender); err != nil {
			s.log.Warn().Err(err).Int64("debate", created.ID).Msg("дебаты: уведомление не отправлено")
		}
	}
	return created, nil
}

// AcceptChallenge переводит вызов в активную стадию. Принять вызов
// может только защитник, и только пока дебаты ожидают ответа.
func (s *Service) AcceptChallenge(ctx context.Context, debateID, userID int64) (domain.Debate, error) {
	d, err := s.debates.GetDebate(ctx, debateID)
	if err != nil {
		return domain.Debate{}, err
	}
	if userID != d.DefenderID {
		return domain.Debate{}, domain.ErrNotDefender
	}
	if d.Status != domain.DebateStatusPending {
		return domain.Debate{}, domain.ErrWrongStatus
	}

	turn := d.ChallengerID
	updated, err := s.debates.ApplyTransition(ctx, domain.DebateTransition{
		DebateID:        d.ID,
		ExpectedVersion: d.Version,
		Status:          domain.DebateStatusActive,
		CurrentRound:    d.CurrentRound,
		WhoseTurnID:     &turn,
	})
	if err != nil {
		return domain.Debate{}, fmt.Errorf("принятие вызова: %w", err)
	}
	s.recordEvent(ctx, "debate_accepted", &userID, &d.ID, nil)
	s.notifyByIDs(ctx, updated, func(n domain.Notifier, challenger, defender domain.User) error {
		return n.ChallengeAccepted(ctx, updated, challenger, defender)
	})
	return updated, nil
}

// DeclineChallenge отклоняет вызов. Запись остаётся в терминальном
// статусе DECLINED, история дебатов не удаляется.
func (s *Service) DeclineChallenge(ctx context.Context, debateID, userID int64) (domain.Debate, error) {
	d, err := s.debates.GetDebate(ctx, debateID)
	if err != nil {
		return domain.Debate{}, err
	}
	if userID != d.DefenderID {
		return domain.Debate{}, domain.ErrNotDefender
	}
	if d.Status != domain.DebateStatusPending {
		return domain.Debate{}, domain.ErrWrongStatus
	}

	updated, err := s.debates.ApplyTransition(ctx, domain.DebateTransition{
		DebateID:        d.ID,
		ExpectedVersion: d.Version,
		Status:          domain.DebateStatusDeclined,
		CurrentRound:    d.CurrentRound,
	})
	if err != nil {
		return domain.Debate{}, fmt.Errorf("отклонение вызова: %w", err)
	}
	s.recordEvent(ctx, "debate_declined", &userID, &d.ID, nil)
	return updated, nil
}

// CanSubmitArgument сообщает, может ли участник подать аргумент сейчас.
func CanSubmitArgument(d domain.Debate, args []domain.DebateArgument, userID int64) bool {
	return checkSubmit(d, args, userID) == nil
}

func checkSubmit(d domain.Debate, args []domain.DebateArgument, userID int64) error {
	if d.Status != domain.DebateStatusActive {
		return domain.ErrWrongStatus
	}
	if !d.IsParticipant(userID) {
		return domain.ErrNotParticipant
	}
	if HasArgued(args, userID, d.CurrentRound) {
		return domain.ErrAlreadyArgued
	}
	turn, ok := ExpectedTurn(d, args)
	if !ok || turn != userID {
		return domain.ErrNotYourTurn
	}
	return nil
}

// SubmitArgument сохраняет аргумент и продвигает состояние дебатов.
// Вставка аргумента и переход выполняются одной транзакцией с проверкой
// версии; при конкурентной подаче операция повторяется заново.
func (s *Service) SubmitArgument(ctx context.Context, debateID, userID int64, content string) (domain.Debate, domain.DebateArgument, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Debate{}, domain.DebateArgument{}, domain.ErrContentInvalid
	}

	for attempt := 0; attempt < submitRetryMax; attempt++ {
		d, err := s.debates.GetDebate(ctx, debateID)
		if err != nil {
			return domain.Debate{}, domain.DebateArgument{}, err
		}
		args, err := s.debates.ListArguments(ctx, d.ID)
		if err != nil {
			return domain.Debate{}, domain.DebateArgument{}, fmt.Errorf("получение аргументов: %w", err)
		}
		if err := checkSubmit(d, args, userID); err != nil {
			return domain.Debate{}, domain.DebateArgument{}, err
		}

		tr := s.advance(d, args, userID)
		saved, err := s.debates.InsertArgument(ctx, domain.DebateArgument{
			DebateID:        d.ID,
			UserID:          userID,
			RoundNumber:     d.CurrentRound,
			Content:         content,
			FactCheckStatus: domain.FactCheckUnchecked,
		}, tr)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domain.Debate{}, domain.DebateArgument{}, fmt.Errorf("сохранение аргумента: %w", err)
		}

		updated, err := s.debates.GetDebate(ctx, d.ID)
		if err != nil {
			return domain.Debate{}, domain.DebateArgument{}, err
		}
		metrics.IncArgumentSubmitted()
		s.recordEvent(ctx, "argument_submitted", &userID, &d.ID, map[string]any{"round": saved.RoundNumber})
		if updated.Status == domain.DebateStatusVoting {
			s.recordEvent(ctx, "voting_started", nil, &d.ID, nil)
			s.notifyByIDs(ctx, updated, func(n domain.Notifier, challenger, defender domain.User) error {
				return n.VotingStarted(ctx, updated, challenger, defender)
			})
		}
		return updated, saved, nil
	}
	return domain.Debate{}, domain.DebateArgument{}, domain.ErrVersionConflict
}

// advance вычисляет переход после подачи аргумента участником userID.
func (s *Service) advance(d domain.Debate, args []domain.DebateArgument, userID int64) domain.DebateTransition {
	after := make([]domain.DebateArgument, len(args), len(args)+1)
	copy(after, args)
	after = append(after, domain.DebateArgument{DebateID: d.ID, UserID: userID, RoundNumber: d.CurrentRound})

	tr := domain.DebateTransition{
		DebateID:        d.ID,
		ExpectedVersion: d.Version,
		Status:          domain.DebateStatusActive,
		CurrentRound:    d.CurrentRound,
	}
	if !IsRoundComplete(d, after, d.CurrentRound) {
		turn := d.Opponent(userID)
		tr.WhoseTurnID = &turn
		return tr
	}
	if d.CurrentRound >= domain.MaxRounds {
		ends := s.now().Add(s.votingWindow)
		tr.Status = domain.DebateStatusVoting
		tr.VotingEndsAt = &ends
		return tr
	}
	tr.CurrentRound = d.CurrentRound + 1
	turn := FirstMoverForRound(d, tr.CurrentRound)
	tr.WhoseTurnID = &turn
	return tr
}

// ExpectedTurnFor возвращает участника, чья очередь высказываться.
// nil означает, что очереди нет (дебаты не в активной стадии).
func (s *Service) ExpectedTurnFor(ctx context.Context, debateID int64) (*int64, error) {
	d, err := s.debates.GetDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	args, err := s.debates.ListArguments(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("получение аргументов: %w", err)
	}
	turn, ok := ExpectedTurn(d, args)
	if !ok {
		return nil, nil
	}
	return &turn, nil
}

// RoundStatus описывает состояние текущего раунда.
type RoundStatus struct {
	Round            int
	ChallengerArgued bool
	DefenderArgued   bool
	Complete         bool
}

// RoundStatusFor возвращает состояние текущего раунда дебатов.
func (s *Service) RoundStatusFor(ctx context.Context, debateID int64) (RoundStatus, error) {
	d, err := s.debates.GetDebate(ctx, debateID)
	if err != nil {
		return RoundStatus{}, err
	}
	args, err := s.debates.ListArguments(ctx, d.ID)
	if err != nil {
		return RoundStatus{}, fmt.Errorf("получение аргументов: %w", err)
	}
	return RoundStatus{
		Round:            d.CurrentRound,
		ChallengerArgued: HasArgued(args, d.ChallengerID, d.CurrentRound),
		DefenderArgued:   HasArgued(args, d.DefenderID, d.CurrentRound),
		Complete:         IsRoundComplete(d, args, d.CurrentRound),
	}, nil
}

// GetDebate возвращает дебаты по идентификатору.
func (s *Service) GetDebate(ctx context.Context, debateID int64) (domain.Debate, error) {
	return s.debates.GetDebate(ctx, debateID)
}

// ArgumentsFor возвращает аргументы дебатов в порядке раундов.
func (s *Service) ArgumentsFor(ctx context.Context, debateID int64) ([]domain.DebateArgument, error) {
	return s.debates.ListArguments(ctx, debateID)
}

// ListForUser возвращает дебаты пользователя.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Debate, error) {
	return s.debates.ListDebatesForUser(ctx, userID, limit, offset)
}

func (s *Service) recordEvent(ctx context.Context, event string, userID, debateID *int64, meta map[string]any) {
	if s.events == nil {
		return
	}
	err := s.events.RecordEvent(ctx, domain.DomainEvent{
		Event:      event,
		UserID:     userID,
		DebateID:   debateID,
		Metadata:   meta,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("дебаты: событие не записано")
	}
}

func (s *Service) notifyByIDs(ctx context.Context, d domain.Debate, fn func(domain.Notifier, domain.User, domain.User) error) {
	if s.notifier == nil {
		return
	}
	challenger, err := s.users.GetUser(ctx, d.ChallengerID)
	if err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("дебаты: претендент для уведомления не найден")
		return
	}
	defender, err := s.users.GetUser(ctx, d.DefenderID)
	if err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("дебаты: защитник для уведомления не найден")
		return
	}
	if err := fn(s.notifier, challenger, defender); err != nil {
		s.log.Warn().Err(err).Int64("debate", d.ID).Msg("дебаты: уведомление не отправлено")
	}
}

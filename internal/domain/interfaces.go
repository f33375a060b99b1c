package domain

import (
	"context"
	"time"
)

// DebateTransition описывает смену состояния дебатов.
// ExpectedVersion защищает от конкурентного изменения: хранилище
// применяет переход только если версия строки не изменилась.
type DebateTransition struct {
	DebateID        int64
	ExpectedVersion int64
	Status          DebateStatus
	CurrentRound    int
	WhoseTurnID     *int64
	VotingEndsAt    *time.Time
}

// UserRepo управляет пользователями и их репутацией.
type UserRepo interface {
	CreateUser(ctx context.Context, username string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	// ApplyFactCheckOutcome атомарно увеличивает счётчики проверок и
	// пересчитывает оценку доверия одной операцией.
	ApplyFactCheckOutcome(ctx context.Context, userID int64, verified, falsified bool) (User, error)
	// RecalculateTrustScore пересчитывает оценку из текущих счётчиков.
	RecalculateTrustScore(ctx context.Context, userID int64) (User, error)
	// RecordDebateResult увеличивает статистику побед и поражений.
	RecordDebateResult(ctx context.Context, winnerID, loserID int64) error
	ListTopByTrust(ctx context.Context, limit int) ([]User, error)
}

// DebateRepo управляет дебатами, аргументами и голосами.
type DebateRepo interface {
	CreateDebate(ctx context.Context, debate Debate) (Debate, error)
	GetDebate(ctx context.Context, id int64) (Debate, error)
	ListDebatesForUser(ctx context.Context, userID int64, limit, offset int) ([]Debate, error)
	// ApplyTransition применяет переход состояния. Возвращает
	// ErrVersionConflict, если версия дебатов уже изменилась.
	ApplyTransition(ctx context.Context, tr DebateTransition) (Debate, error)

	ListArguments(ctx context.Context, debateID int64) ([]DebateArgument, error)
	GetArgument(ctx context.Context, id int64) (DebateArgument, error)
	// InsertArgument сохраняет аргумент и применяет переход одной транзакцией.
	// Дубликат тройки (дебаты, участник, раунд) возвращает ErrAlreadyArgued.
	InsertArgument(ctx context.Context, arg DebateArgument, tr DebateTransition) (DebateArgument, error)

	// CastVote сохраняет голос и увеличивает счётчик одной транзакцией.
	// Повторный голос пары (дебаты, пользователь) возвращает ErrAlreadyVoted.
	CastVote(ctx context.Context, vote DebateVote) (Debate, error)
	GetVoteTotals(ctx context.Context, debateID int64) (VoteTotals, error)

	// ListExpiredVoting возвращает дебаты с истёкшим окном голосования.
	ListExpiredVoting(ctx context.Context, now time.Time, limit int) ([]Debate, error)
	// CompleteDebate закрывает голосование и фиксирует победителя.
	CompleteDebate(ctx context.Context, debateID, expectedVersion int64, winnerID *int64) (Debate, error)
}

// PostRepo управляет публикациями и результатами проверки фактов.
type PostRepo interface {
	CreatePost(ctx context.Context, post Post) (Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	// ApplyPostVerdict записывает вердикт, если публикация ещё не проверена.
	ApplyPostVerdict(ctx context.Context, postID int64, verdict FactCheckVerdict) (Post, error)
	// ApplyArgumentVerdict записывает вердикт на аргумент дебатов.
	ApplyArgumentVerdict(ctx context.Context, argumentID int64, verdict FactCheckVerdict) (DebateArgument, error)
}

// Notifier отправляет участникам уведомления о ходе дебатов.
type Notifier interface {
	ChallengeCreated(ctx context.Context, debate Debate, challenger, defender User) error
	ChallengeAccepted(ctx context.Context, debate Debate, challenger, defender User) error
	VotingStarted(ctx context.Context, debate Debate, challenger, defender User) error
	DebateCompleted(ctx context.Context, debate Debate, challenger, defender User) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

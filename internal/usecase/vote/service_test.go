package vote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
)

type memStore struct {
	users   map[int64]domain.User
	debates map[int64]domain.Debate
	votes   map[int64]map[int64]domain.DebateVote
	results [][2]int64
}

func newMemStore(d domain.Debate) *memStore {
	return &memStore{
		users: map[int64]domain.User{
			1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4}, 5: {ID: 5},
		},
		debates: map[int64]domain.Debate{d.ID: d},
		votes:   map[int64]map[int64]domain.DebateVote{},
	}
}

func votingDebate() domain.Debate {
	ends := time.Now().Add(24 * time.Hour)
	return domain.Debate{
		ID:           1,
		ChallengerID: 1,
		DefenderID:   2,
		Status:       domain.DebateStatusVoting,
		CurrentRound: 3,
		VotingEndsAt: &ends,
		Version:      7,
	}
}

func (m *memStore) CreateUser(context.Context, string) (domain.User, error) {
	return domain.User{}, nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) ApplyFactCheckOutcome(context.Context, int64, bool, bool) (domain.User, error) {
	return domain.User{}, nil
}

func (m *memStore) RecalculateTrustScore(context.Context, int64) (domain.User, error) {
	return domain.User{}, nil
}

func (m *memStore) RecordDebateResult(ctx context.Context, winnerID, loserID int64) error {
	m.results = append(m.results, [2]int64{winnerID, loserID})
	return nil
}

func (m *memStore) ListTopByTrust(context.Context, int) ([]domain.User, error) { return nil, nil }

func (m *memStore) CreateDebate(ctx context.Context, d domain.Debate) (domain.Debate, error) {
	m.debates[d.ID] = d
	return d, nil
}

func (m *memStore) GetDebate(ctx context.Context, id int64) (domain.Debate, error) {
	d, ok := m.debates[id]
	if !ok {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	return d, nil
}

func (m *memStore) ListDebatesForUser(context.Context, int64, int, int) ([]domain.Debate, error) {
	return nil, nil
}

func (m *memStore) ApplyTransition(context.Context, domain.DebateTransition) (domain.Debate, error) {
	return domain.Debate{}, nil
}

func (m *memStore) ListArguments(context.Context, int64) ([]domain.DebateArgument, error) {
	return nil, nil
}

func (m *memStore) GetArgument(context.Context, int64) (domain.DebateArgument, error) {
	return domain.DebateArgument{}, domain.ErrArgumentNotFound
}

func (m *memStore) InsertArgument(context.Context, domain.DebateArgument, domain.DebateTransition) (domain.DebateArgument, error) {
	return domain.DebateArgument{}, nil
}

func (m *memStore) CastVote(ctx context.Context, v domain.DebateVote) (domain.Debate, error) {
	d, ok := m.debates[v.DebateID]
	if !ok {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	byUser := m.votes[v.DebateID]
	if byUser == nil {
		byUser = map[int64]domain.DebateVote{}
		m.votes[v.DebateID] = byUser
	}
	if _, exists := byUser[v.UserID]; exists {
		return domain.Debate{}, domain.ErrAlreadyVoted
	}
	byUser[v.UserID] = v
	switch v.Choice {
	case domain.VoteChallenger:
		d.VotesChallenger++
	case domain.VoteDefender:
		d.VotesDefender++
	case domain.VoteTie:
		d.VotesTie++
	}
	d.Version++
	m.debates[d.ID] = d
	return d, nil
}

func (m *memStore) GetVoteTotals(ctx context.Context, debateID int64) (domain.VoteTotals, error) {
	d := m.debates[debateID]
	return domain.VoteTotals{
		Challenger: d.VotesChallenger,
		Defender:   d.VotesDefender,
		Tie:        d.VotesTie,
	}, nil
}

func (m *memStore) ListExpiredVoting(context.Context, time.Time, int) ([]domain.Debate, error) {
	return nil, nil
}

func (m *memStore) CompleteDebate(ctx context.Context, debateID, expectedVersion int64, winnerID *int64) (domain.Debate, error) {
	d, ok := m.debates[debateID]
	if !ok {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	if d.Version != expectedVersion {
		return domain.Debate{}, domain.ErrVersionConflict
	}
	d.Status = domain.DebateStatusCompleted
	d.WinnerID = winnerID
	d.Version++
	m.debates[d.ID] = d
	return d, nil
}

func (m *memStore) RecordEvent(context.Context, domain.DomainEvent) error { return nil }

func newTestService(store *memStore) *Service {
	return NewService(store, store, store, nil, zerolog.Nop())
}

func TestCastVote(t *testing.T) {
	store := newMemStore(votingDebate())
	service := newTestService(store)
	ctx := context.Background()

	d, err := service.CastVote(ctx, 1, 3, domain.VoteChallenger)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.VotesChallenger != 1 {
		t.Fatalf("счётчик претендента должен увеличиться")
	}

	if _, err := service.CastVote(ctx, 1, 3, domain.VoteDefender); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Fatalf("повторный голос отклоняется, получили %v", err)
	}
	if _, err := service.CastVote(ctx, 1, 1, domain.VoteChallenger); !errors.Is(err, domain.ErrParticipantVote) {
		t.Fatalf("претендент не может голосовать, получили %v", err)
	}
	if _, err := service.CastVote(ctx, 1, 2, domain.VoteTie); !errors.Is(err, domain.ErrParticipantVote) {
		t.Fatalf("защитник не может голосовать, получили %v", err)
	}
	if _, err := service.CastVote(ctx, 1, 4, "maybe"); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Fatalf("неизвестный вариант отклоняется, получили %v", err)
	}
}

func TestCastVoteWrongStatus(t *testing.T) {
	d := votingDebate()
	d.Status = domain.DebateStatusActive
	service := newTestService(newMemStore(d))

	if _, err := service.CastVote(context.Background(), 1, 3, domain.VoteTie); !errors.Is(err, domain.ErrWrongStatus) {
		t.Fatalf("голосовать можно только на стадии голосования, получили %v", err)
	}
}

func TestCastVoteAfterDeadline(t *testing.T) {
	d := votingDebate()
	ends := time.Now().Add(-time.Minute)
	d.VotingEndsAt = &ends
	service := newTestService(newMemStore(d))

	if _, err := service.CastVote(context.Background(), 1, 3, domain.VoteChallenger); !errors.Is(err, domain.ErrVotingClosed) {
		t.Fatalf("после конца окна голос отклоняется, получили %v", err)
	}
}

func TestCloseVotingCountsLateVote(t *testing.T) {
	snapshot := votingDebate()
	store := newMemStore(snapshot)
	service := newTestService(store)
	ctx := context.Background()

	// Голос поступает после того, как закрывающий взял снимок дебатов.
	if _, err := service.CastVote(ctx, 1, 3, domain.VoteDefender); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	completed, err := service.CloseVoting(ctx, snapshot)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if completed.WinnerID == nil || *completed.WinnerID != 2 {
		t.Fatalf("победитель определяется по свежим счётчикам, а не по снимку")
	}
	if len(store.results) != 1 || store.results[0] != [2]int64{2, 1} {
		t.Fatalf("статистика сторон должна учесть поздний голос: %v", store.results)
	}
}

func TestTotals(t *testing.T) {
	store := newMemStore(votingDebate())
	service := newTestService(store)
	ctx := context.Background()

	for userID, choice := range map[int64]domain.VoteChoice{
		3: domain.VoteChallenger,
		4: domain.VoteDefender,
		5: domain.VoteTie,
	} {
		if _, err := service.CastVote(ctx, 1, userID, choice); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	totals, err := service.Totals(ctx, 1)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if totals.Challenger != 1 || totals.Defender != 1 || totals.Tie != 1 {
		t.Fatalf("неверные счётчики: %+v", totals)
	}
	if totals.Total() != 3 {
		t.Fatalf("общее количество голосов должно быть 3")
	}
}

func TestResolveWinner(t *testing.T) {
	tests := []struct {
		name       string
		challenger int
		defender   int
		tie        int
		want       *int64
	}{
		{name: "challenger wins", challenger: 5, defender: 3, tie: 4, want: ptr(1)},
		{name: "defender wins", challenger: 2, defender: 6, want: ptr(2)},
		{name: "equal is draw", challenger: 3, defender: 3, tie: 1, want: nil},
		{name: "no votes is draw", want: nil},
		{name: "tie votes do not decide", tie: 10, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := votingDebate()
			d.VotesChallenger = tt.challenger
			d.VotesDefender = tt.defender
			d.VotesTie = tt.tie
			got := ResolveWinner(d)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ResolveWinner = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Fatalf("ResolveWinner = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestCloseVoting(t *testing.T) {
	d := votingDebate()
	d.VotesChallenger = 4
	d.VotesDefender = 1
	store := newMemStore(d)
	service := newTestService(store)

	completed, err := service.CloseVoting(context.Background(), d)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if completed.Status != domain.DebateStatusCompleted {
		t.Fatalf("после закрытия дебаты завершены, статус %s", completed.Status)
	}
	if completed.WinnerID == nil || *completed.WinnerID != 1 {
		t.Fatalf("победитель — претендент")
	}
	if len(store.results) != 1 || store.results[0] != [2]int64{1, 2} {
		t.Fatalf("статистика сторон должна обновиться: %v", store.results)
	}
}

func TestCloseVotingDraw(t *testing.T) {
	d := votingDebate()
	d.VotesChallenger = 2
	d.VotesDefender = 2
	store := newMemStore(d)
	service := newTestService(store)

	completed, err := service.CloseVoting(context.Background(), d)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if completed.WinnerID != nil {
		t.Fatalf("при равенстве голосов победителя нет")
	}
	if len(store.results) != 0 {
		t.Fatalf("при ничьей статистика сторон не меняется")
	}
}

type memNotifier struct {
	completed int
}

func (n *memNotifier) ChallengeCreated(context.Context, domain.Debate, domain.User, domain.User) error {
	return nil
}

func (n *memNotifier) ChallengeAccepted(context.Context, domain.Debate, domain.User, domain.User) error {
	return nil
}

func (n *memNotifier) VotingStarted(context.Context, domain.Debate, domain.User, domain.User) error {
	return nil
}

func (n *memNotifier) DebateCompleted(context.Context, domain.Debate, domain.User, domain.User) error {
	n.completed++
	return nil
}

func TestCloseVotingNotifies(t *testing.T) {
	d := votingDebate()
	d.VotesDefender = 3
	store := newMemStore(d)
	notifier := &memNotifier{}
	service := NewService(store, store, store, notifier, zerolog.Nop())

	if _, err := service.CloseVoting(context.Background(), d); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if notifier.completed != 1 {
		t.Fatalf("обе стороны уведомляются один раз, отправок %d", notifier.completed)
	}
}

func TestCloseVotingWrongStatus(t *testing.T) {
	d := votingDebate()
	d.Status = domain.DebateStatusCompleted
	service := newTestService(newMemStore(d))

	if _, err := service.CloseVoting(context.Background(), d); !errors.Is(err, domain.ErrWrongStatus) {
		t.Fatalf("завершённые дебаты закрывать нельзя, получили %v", err)
	}
}

package debate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
)

type memStore struct {
	users   map[int64]domain.User
	debates map[int64]domain.Debate
	args    map[int64][]domain.DebateArgument
	events  []domain.DomainEvent
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int64]domain.User{
			1: {ID: 1, Username: "challenger"},
			2: {ID: 2, Username: "defender"},
		},
		debates: map[int64]domain.Debate{},
		args:    map[int64][]domain.DebateArgument{},
	}
}

func (m *memStore) CreateUser(ctx context.Context, username string) (domain.User, error) {
	m.nextID++
	u := domain.User{ID: m.nextID, Username: username}
	m.users[u.ID] = u
	return u, nil
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

func (m *memStore) RecordDebateResult(context.Context, int64, int64) error { return nil }

func (m *memStore) ListTopByTrust(context.Context, int) ([]domain.User, error) { return nil, nil }

func (m *memStore) CreateDebate(ctx context.Context, d domain.Debate) (domain.Debate, error) {
	m.nextID++
	d.ID = m.nextID
	d.Version = 1
	d.CreatedAt = time.Now()
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

func (m *memStore) applyTransition(tr domain.DebateTransition) (domain.Debate, error) {
	d, ok := m.debates[tr.DebateID]
	if !ok {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	if d.Version != tr.ExpectedVersion {
		return domain.Debate{}, domain.ErrVersionConflict
	}
	d.Status = tr.Status
	d.CurrentRound = tr.CurrentRound
	d.WhoseTurnID = tr.WhoseTurnID
	d.VotingEndsAt = tr.VotingEndsAt
	d.Version++
	m.debates[d.ID] = d
	return d, nil
}

func (m *memStore) ApplyTransition(ctx context.Context, tr domain.DebateTransition) (domain.Debate, error) {
	return m.applyTransition(tr)
}

func (m *memStore) ListArguments(ctx context.Context, debateID int64) ([]domain.DebateArgument, error) {
	return m.args[debateID], nil
}

func (m *memStore) GetArgument(ctx context.Context, id int64) (domain.DebateArgument, error) {
	for _, list := range m.args {
		for _, a := range list {
			if a.ID == id {
				return a, nil
			}
		}
	}
	return domain.DebateArgument{}, domain.ErrArgumentNotFound
}

func (m *memStore) InsertArgument(ctx context.Context, arg domain.DebateArgument, tr domain.DebateTransition) (domain.DebateArgument, error) {
	for _, a := range m.args[arg.DebateID] {
		if a.UserID == arg.UserID && a.RoundNumber == arg.RoundNumber {
			return domain.DebateArgument{}, domain.ErrAlreadyArgued
		}
	}
	if _, err := m.applyTransition(tr); err != nil {
		return domain.DebateArgument{}, err
	}
	m.nextID++
	arg.ID = m.nextID
	arg.CreatedAt = time.Now()
	m.args[arg.DebateID] = append(m.args[arg.DebateID], arg)
	return arg, nil
}

func (m *memStore) CastVote(context.Context, domain.DebateVote) (domain.Debate, error) {
	return domain.Debate{}, nil
}

func (m *memStore) GetVoteTotals(context.Context, int64) (domain.VoteTotals, error) {
	return domain.VoteTotals{}, nil
}

func (m *memStore) ListExpiredVoting(context.Context, time.Time, int) ([]domain.Debate, error) {
	return nil, nil
}

func (m *memStore) CompleteDebate(context.Context, int64, int64, *int64) (domain.Debate, error) {
	return domain.Debate{}, nil
}

func (m *memStore) RecordEvent(ctx context.Context, event domain.DomainEvent) error {
	m.events = append(m.events, event)
	return nil
}

func newTestService(store *memStore) *Service {
	return NewService(store, store, store, nil, zerolog.Nop(), 24*time.Hour)
}

func TestCreateChallenge(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	d, err := service.CreateChallenge(context.Background(), 1, 2, "Земля круглая")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.Status != domain.DebateStatusPending {
		t.Fatalf("новый вызов ожидает ответа защитника, статус %s", d.Status)
	}
	if d.CurrentRound != 1 {
		t.Fatalf("дебаты начинаются с раунда 1")
	}
	if d.WhoseTurnID == nil || *d.WhoseTurnID != 1 {
		t.Fatalf("очередь сразу за претендентом")
	}
}

func TestCreateChallengeValidation(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.CreateChallenge(ctx, 1, 1, "тема"); !errors.Is(err, domain.ErrSelfChallenge) {
		t.Fatalf("ожидали ErrSelfChallenge, получили %v", err)
	}
	if _, err := service.CreateChallenge(ctx, 1, 2, ""); !errors.Is(err, domain.ErrTopicInvalid) {
		t.Fatalf("ожидали ErrTopicInvalid для пустой темы, получили %v", err)
	}
	long := strings.Repeat("ы", domain.TopicMaxLen+1)
	if _, err := service.CreateChallenge(ctx, 1, 2, long); !errors.Is(err, domain.ErrTopicInvalid) {
		t.Fatalf("ожидали ErrTopicInvalid для длинной темы, получили %v", err)
	}
	if _, err := service.CreateChallenge(ctx, 1, 99, "тема"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("ожидали ErrUserNotFound, получили %v", err)
	}
}

func TestAcceptChallenge(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	d, _ := service.CreateChallenge(ctx, 1, 2, "тема")

	if _, err := service.AcceptChallenge(ctx, d.ID, 1); !errors.Is(err, domain.ErrNotDefender) {
		t.Fatalf("принять вызов может только защитник, получили %v", err)
	}

	accepted, err := service.AcceptChallenge(ctx, d.ID, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if accepted.Status != domain.DebateStatusActive {
		t.Fatalf("после принятия дебаты активны, статус %s", accepted.Status)
	}
	if accepted.WhoseTurnID == nil || *accepted.WhoseTurnID != 1 {
		t.Fatalf("после принятия очередь за претендентом")
	}
	if accepted.CurrentRound != 1 {
		t.Fatalf("раунд не меняется при принятии")
	}

	if _, err := service.AcceptChallenge(ctx, d.ID, 2); !errors.Is(err, domain.ErrWrongStatus) {
		t.Fatalf("повторное принятие невозможно, получили %v", err)
	}
}

func TestDeclineChallenge(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	d, _ := service.CreateChallenge(ctx, 1, 2, "тема")

	if _, err := service.DeclineChallenge(ctx, d.ID, 1); !errors.Is(err, domain.ErrNotDefender) {
		t.Fatalf("отклонить вызов может только защитник, получили %v", err)
	}

	declined, err := service.DeclineChallenge(ctx, d.ID, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if declined.Status != domain.DebateStatusDeclined {
		t.Fatalf("отклонённый вызов остаётся в истории со статусом declined")
	}
	if declined.WhoseTurnID != nil {
		t.Fatalf("после отклонения очереди нет")
	}
}

func TestSubmitArgumentFullFlow(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	created, _ := service.CreateChallenge(ctx, 1, 2, "тема")
	if _, _, err := service.SubmitArgument(ctx, created.ID, 1, "рано"); !errors.Is(err, domain.ErrWrongStatus) {
		t.Fatalf("до принятия аргументы не принимаются, получили %v", err)
	}
	if _, err := service.AcceptChallenge(ctx, created.ID, 2); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Раунд 1: претендент, затем защитник.
	d, _, err := service.SubmitArgument(ctx, created.ID, 1, "аргумент 1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.CurrentRound != 1 || d.WhoseTurnID == nil || *d.WhoseTurnID != 2 {
		t.Fatalf("после хода претендента очередь защитника в раунде 1")
	}

	d, _, err = service.SubmitArgument(ctx, created.ID, 2, "ответ 1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.CurrentRound != 2 || d.WhoseTurnID == nil || *d.WhoseTurnID != 2 {
		t.Fatalf("раунд 2 открывает защитник, раунд %d", d.CurrentRound)
	}

	// Раунд 2: защитник, затем претендент.
	d, _, err = service.SubmitArgument(ctx, created.ID, 2, "аргумент 2")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.WhoseTurnID == nil || *d.WhoseTurnID != 1 {
		t.Fatalf("после хода защитника очередь претендента")
	}

	d, _, err = service.SubmitArgument(ctx, created.ID, 1, "ответ 2")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.CurrentRound != 3 || d.WhoseTurnID == nil || *d.WhoseTurnID != 1 {
		t.Fatalf("раунд 3 открывает претендент, раунд %d", d.CurrentRound)
	}

	// Раунд 3: претендент, затем защитник — и голосование.
	d, _, err = service.SubmitArgument(ctx, created.ID, 1, "аргумент 3")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.WhoseTurnID == nil || *d.WhoseTurnID != 2 {
		t.Fatalf("последний ход за защитником")
	}

	d, _, err = service.SubmitArgument(ctx, created.ID, 2, "ответ 3")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if d.Status != domain.DebateStatusVoting {
		t.Fatalf("после третьего раунда начинается голосование, статус %s", d.Status)
	}
	if d.WhoseTurnID != nil {
		t.Fatalf("на стадии голосования очереди нет")
	}
	if d.VotingEndsAt == nil {
		t.Fatalf("окно голосования должно быть задано")
	}
	window := time.Until(*d.VotingEndsAt)
	if window < 23*time.Hour || window > 25*time.Hour {
		t.Fatalf("окно голосования около 24 часов, получили %s", window)
	}
}

func TestSubmitArgumentGuards(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	created, _ := service.CreateChallenge(ctx, 1, 2, "тема")
	if _, err := service.AcceptChallenge(ctx, created.ID, 2); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if _, _, err := service.SubmitArgument(ctx, created.ID, 2, "вне очереди"); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("ожидали ErrNotYourTurn, получили %v", err)
	}
	if _, _, err := service.SubmitArgument(ctx, created.ID, 7, "чужой"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("ожидали ErrNotParticipant, получили %v", err)
	}
	if _, _, err := service.SubmitArgument(ctx, created.ID, 1, "  "); !errors.Is(err, domain.ErrContentInvalid) {
		t.Fatalf("ожидали ErrContentInvalid, получили %v", err)
	}

	if _, _, err := service.SubmitArgument(ctx, created.ID, 1, "первый"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, _, err := service.SubmitArgument(ctx, created.ID, 1, "повтор"); !errors.Is(err, domain.ErrAlreadyArgued) {
		t.Fatalf("повторный аргумент в раунде отклоняется, получили %v", err)
	}
	if got := len(store.args[created.ID]); got != 1 {
		t.Fatalf("повторная подача не создаёт вторую запись, записей %d", got)
	}
}

func TestExpectedTurnFor(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	created, _ := service.CreateChallenge(ctx, 1, 2, "тема")
	turn, err := service.ExpectedTurnFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if turn != nil {
		t.Fatalf("до принятия вызова очереди нет")
	}

	if _, err := service.AcceptChallenge(ctx, created.ID, 2); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	turn, err = service.ExpectedTurnFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if turn == nil || *turn != 1 {
		t.Fatalf("очередь выводится из сохранённых аргументов")
	}
}

func TestRoundStatusFor(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)
	ctx := context.Background()

	created, _ := service.CreateChallenge(ctx, 1, 2, "тема")
	if _, err := service.AcceptChallenge(ctx, created.ID, 2); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, _, err := service.SubmitArgument(ctx, created.ID, 1, "аргумент"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	status, err := service.RoundStatusFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status.Round != 1 || !status.ChallengerArgued || status.DefenderArgued || status.Complete {
		t.Fatalf("неверное состояние раунда: %+v", status)
	}
}

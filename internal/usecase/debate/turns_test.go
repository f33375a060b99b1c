package debate

import (
	"testing"

	"debate-arena/internal/domain"
)

func testDebate(status domain.DebateStatus, round int) domain.Debate {
	return domain.Debate{
		ID:           1,
		ChallengerID: 10,
		DefenderID:   20,
		Status:       status,
		CurrentRound: round,
	}
}

func arg(userID int64, round int) domain.DebateArgument {
	return domain.DebateArgument{DebateID: 1, UserID: userID, RoundNumber: round}
}

func TestFirstMoverForRound(t *testing.T) {
	d := testDebate(domain.DebateStatusActive, 1)
	tests := []struct {
		round int
		want  int64
	}{
		{round: 1, want: d.ChallengerID},
		{round: 2, want: d.DefenderID},
		{round: 3, want: d.ChallengerID},
	}
	for _, tt := range tests {
		if got := FirstMoverForRound(d, tt.round); got != tt.want {
			t.Fatalf("FirstMoverForRound(%d) = %d, want %d", tt.round, got, tt.want)
		}
	}
}

func TestHasArgued(t *testing.T) {
	args := []domain.DebateArgument{arg(10, 1), arg(20, 1), arg(10, 2)}
	if !HasArgued(args, 10, 1) {
		t.Fatalf("ожидали аргумент претендента в раунде 1")
	}
	if HasArgued(args, 20, 2) {
		t.Fatalf("не ожидали аргумент защитника в раунде 2")
	}
}

func TestIsRoundComplete(t *testing.T) {
	d := testDebate(domain.DebateStatusActive, 1)
	if IsRoundComplete(d, []domain.DebateArgument{arg(10, 1)}, 1) {
		t.Fatalf("раунд не завершён после одного аргумента")
	}
	if !IsRoundComplete(d, []domain.DebateArgument{arg(20, 1), arg(10, 1)}, 1) {
		t.Fatalf("раунд завершён независимо от порядка аргументов")
	}
}

func TestExpectedTurn(t *testing.T) {
	d := testDebate(domain.DebateStatusActive, 1)
	turn, ok := ExpectedTurn(d, nil)
	if !ok || turn != d.ChallengerID {
		t.Fatalf("первый ход раунда 1 за претендентом, получили %d", turn)
	}

	turn, ok = ExpectedTurn(d, []domain.DebateArgument{arg(10, 1)})
	if !ok || turn != d.DefenderID {
		t.Fatalf("после хода претендента очередь защитника, получили %d", turn)
	}

	d2 := testDebate(domain.DebateStatusActive, 2)
	turn, ok = ExpectedTurn(d2, []domain.DebateArgument{arg(10, 1), arg(20, 1)})
	if !ok || turn != d2.DefenderID {
		t.Fatalf("раунд 2 открывает защитник, получили %d", turn)
	}

	if _, ok := ExpectedTurn(testDebate(domain.DebateStatusPending, 1), nil); ok {
		t.Fatalf("для неактивных дебатов очереди нет")
	}
	if _, ok := ExpectedTurn(testDebate(domain.DebateStatusVoting, 3), nil); ok {
		t.Fatalf("на стадии голосования очереди нет")
	}
}

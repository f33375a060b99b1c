package debate

import "debate-arena/internal/domain"

// FirstMoverForRound возвращает участника, открывающего раунд.
// Порядок фиксированный: претендент, защитник, претендент.
func FirstMoverForRound(d domain.Debate, round int) int64 {
	if round == 2 {
		return d.DefenderID
	}
	return d.ChallengerID
}

// HasArgued сообщает, подал ли участник аргумент в указанном раунде.
func HasArgued(args []domain.DebateArgument, userID int64, round int) bool {
	for _, arg := range args {
		if arg.UserID == userID && arg.RoundNumber == round {
			return true
		}
	}
	return false
}

// IsRoundComplete сообщает, высказались ли обе стороны в раунде.
func IsRoundComplete(d domain.Debate, args []domain.DebateArgument, round int) bool {
	return HasArgued(args, d.ChallengerID, round) && HasArgued(args, d.DefenderID, round)
}

// ExpectedTurn выводит очередь хода из сохранённых аргументов.
// Кэшированное поле WhoseTurnID не используется: функция служит
// источником истины для сверки. Для неактивных дебатов очереди нет.
func ExpectedTurn(d domain.Debate, args []domain.DebateArgument) (int64, bool) {
	if d.Status != domain.DebateStatusActive {
		return 0, false
	}
	first := FirstMoverForRound(d, d.CurrentRound)
	if !HasArgued(args, first, d.CurrentRound) {
		return first, true
	}
	return d.Opponent(first), true
}

package domain

import "time"

// MaxRounds — фиксированное количество раундов дебатов.
const MaxRounds = 3

// TopicMaxLen — максимальная длина темы дебатов.
const TopicMaxLen = 280

// User описывает участника сети с репутацией.
type User struct {
	ID               int64
	Username         string
	TrustScore       float64
	PostsFactChecked int
	PostsVerified    int
	PostsFalse       int
	DebatesWon       int
	DebatesLost      int
	TGChatID         *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DebateStatus описывает стадию жизненного цикла дебатов.
type DebateStatus string

const (
	DebateStatusPending   DebateStatus = "pending"
	DebateStatusActive    DebateStatus = "active"
	DebateStatusVoting    DebateStatus = "voting"
	DebateStatusCompleted DebateStatus = "completed"
	DebateStatusDeclined  DebateStatus = "declined"
)

// Terminal сообщает, является ли статус конечным.
func (s DebateStatus) Terminal() bool {
	return s == DebateStatusCompleted || s == DebateStatusDeclined
}

// Debate представляет вызов между двумя пользователями.
type Debate struct {
	ID              int64
	ChallengerID    int64
	DefenderID      int64
	Topic           string
	Status          DebateStatus
	CurrentRound    int
	WhoseTurnID     *int64
	WinnerID        *int64
	VotesChallenger int
	VotesDefender   int
	VotesTie        int
	VotingEndsAt    *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsParticipant сообщает, является ли пользователь стороной дебатов.
func (d Debate) IsParticipant(userID int64) bool {
	return userID == d.ChallengerID || userID == d.DefenderID
}

// Opponent возвращает вторую сторону дебатов.
func (d Debate) Opponent(userID int64) int64 {
	if userID == d.ChallengerID {
		return d.DefenderID
	}
	return d.ChallengerID
}

// TotalVotes возвращает суммарное количество голосов.
func (d Debate) TotalVotes() int {
	return d.VotesChallenger + d.VotesDefender + d.VotesTie
}

// DebateArgument — одно высказывание участника в конкретном раунде.
// Инвариант: не больше одного аргумента на тройку (дебаты, участник, раунд).
type DebateArgument struct {
	ID               int64
	DebateID         int64
	UserID           int64
	RoundNumber      int
	Content          string
	FactCheckStatus  FactCheckStatus
	FactCheckScore   *float64
	FactCheckPayload []byte
	CreatedAt        time.Time
}

// VoteChoice описывает вариант голоса за исход дебатов.
type VoteChoice string

const (
	VoteChallenger VoteChoice = "challenger"
	VoteDefender   VoteChoice = "defender"
	VoteTie        VoteChoice = "tie"
)

// Valid сообщает, является ли выбор допустимым.
func (c VoteChoice) Valid() bool {
	return c == VoteChallenger || c == VoteDefender || c == VoteTie
}

// DebateVote — один голос пользователя по дебатам.
// Инвариант: не больше одного голоса на пару (дебаты, пользователь).
type DebateVote struct {
	ID        int64
	DebateID  int64
	UserID    int64
	Choice    VoteChoice
	CreatedAt time.Time
}

// VoteTotals содержит агрегированные счётчики голосов.
type VoteTotals struct {
	Challenger int
	Defender   int
	Tie        int
}

// Total возвращает общее количество голосов.
func (t VoteTotals) Total() int {
	return t.Challenger + t.Defender + t.Tie
}

// Post представляет обычную публикацию пользователя.
type Post struct {
	ID               int64
	UserID           int64
	Content          string
	FactCheckStatus  FactCheckStatus
	FactCheckScore   *float64
	FactCheckPayload []byte
	CreatedAt        time.Time
}

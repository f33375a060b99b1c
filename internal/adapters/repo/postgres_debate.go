package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

const pgUniqueViolation = "23505"

const debateColumns = `id, challenger_id, defender_id, topic, status, current_round, whose_turn_id, winner_id, votes_challenger, votes_defender, votes_tie, voting_ends_at, version, created_at, updated_at`

func scanDebate(row pgx.Row) (domain.Debate, error) {
	var (
		d            domain.Debate
		whoseTurn    sql.NullInt64
		winner       sql.NullInt64
		votingEndsAt sql.NullTime
	)
	err := row.Scan(&d.ID, &d.ChallengerID, &d.DefenderID, &d.Topic, &d.Status, &d.CurrentRound, &whoseTurn, &winner, &d.VotesChallenger, &d.VotesDefender, &d.VotesTie, &votingEndsAt, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Debate{}, err
	}
	if whoseTurn.Valid {
		id := whoseTurn.Int64
		d.WhoseTurnID = &id
	}
	if winner.Valid {
		id := winner.Int64
		d.WinnerID = &id
	}
	if votingEndsAt.Valid {
		ts := votingEndsAt.Time
		d.VotingEndsAt = &ts
	}
	return d, nil
}

const argumentColumns = `id, debate_id, user_id, round_number, content, fact_check_status, fact_check_score, fact_check_payload, created_at`

func scanArgument(row pgx.Row) (domain.DebateArgument, error) {
	var (
		a     domain.DebateArgument
		score sql.NullFloat64
	)
	err := row.Scan(&a.ID, &a.DebateID, &a.UserID, &a.RoundNumber, &a.Content, &a.FactCheckStatus, &score, &a.FactCheckPayload, &a.CreatedAt)
	if err != nil {
		return domain.DebateArgument{}, err
	}
	if score.Valid {
		v := score.Float64
		a.FactCheckScore = &v
	}
	return a, nil
}

// CreateDebate реализует domain.DebateRepo.
func (p *Postgres) CreateDebate(ctx context.Context, d domain.Debate) (domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var whoseTurn sql.NullInt64
	if d.WhoseTurnID != nil {
		whoseTurn = sql.NullInt64{Int64: *d.WhoseTurnID, Valid: true}
	}

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO debates (challenger_id, defender_id, topic, status, current_round, whose_turn_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+debateColumns, d.ChallengerID, d.DefenderID, d.Topic, d.Status, d.CurrentRound, whoseTurn)
	created, err := scanDebate(row)
	metrics.ObserveNetworkRequest("postgres", "debates_insert", "debates", start, err)
	return created, err
}

// GetDebate реализует domain.DebateRepo.
func (p *Postgres) GetDebate(ctx context.Context, id int64) (domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+debateColumns+` FROM debates WHERE id = $1`, id)
	d, err := scanDebate(row)
	metrics.ObserveNetworkRequest("postgres", "debates_get", "debates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	return d, err
}

// ListDebatesForUser реализует domain.DebateRepo.
func (p *Postgres) ListDebatesForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+debateColumns+`
FROM debates
WHERE challenger_id = $1 OR defender_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	metrics.ObserveNetworkRequest("postgres", "debates_list_user", "debates", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debates []domain.Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, err
		}
		debates = append(debates, d)
	}
	return debates, rows.Err()
}

func applyTransitionTx(ctx context.Context, tx pgx.Tx, tr domain.DebateTransition) (domain.Debate, error) {
	var whoseTurn sql.NullInt64
	if tr.WhoseTurnID != nil {
		whoseTurn = sql.NullInt64{Int64: *tr.WhoseTurnID, Valid: true}
	}
	var votingEndsAt sql.NullTime
	if tr.VotingEndsAt != nil {
		votingEndsAt = sql.NullTime{Time: *tr.VotingEndsAt, Valid: true}
	}

	start := time.Now()
	row := tx.QueryRow(ctx, `
UPDATE debates
SET status = $3,
    current_round = $4,
    whose_turn_id = $5,
    voting_ends_at = COALESCE($6, voting_ends_at),
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND version = $2
RETURNING `+debateColumns, tr.DebateID, tr.ExpectedVersion, tr.Status, tr.CurrentRound, whoseTurn, votingEndsAt)
	d, err := scanDebate(row)
	metrics.ObserveNetworkRequest("postgres", "debates_transition", "debates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		// Строка есть, но версия ушла вперёд: конкурентное изменение.
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM debates WHERE id = $1)`, tr.DebateID).Scan(&exists); checkErr != nil {
			return domain.Debate{}, checkErr
		}
		if !exists {
			return domain.Debate{}, domain.ErrDebateNotFound
		}
		return domain.Debate{}, domain.ErrVersionConflict
	}
	return d, err
}

// ApplyTransition реализует domain.DebateRepo.
func (p *Postgres) ApplyTransition(ctx context.Context, tr domain.DebateTransition) (domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Debate{}, err
	}
	defer tx.Rollback(ctx)

	d, err := applyTransitionTx(ctx, tx, tr)
	if err != nil {
		return domain.Debate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Debate{}, err
	}
	return d, nil
}

// ListArguments реализует domain.DebateRepo.
func (p *Postgres) ListArguments(ctx context.Context, debateID int64) ([]domain.DebateArgument, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+argumentColumns+`
FROM debate_arguments
WHERE debate_id = $1
ORDER BY round_number, created_at`, debateID)
	metrics.ObserveNetworkRequest("postgres", "arguments_list", "debate_arguments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var args []domain.DebateArgument
	for rows.Next() {
		a, err := scanArgument(rows)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, rows.Err()
}

// GetArgument реализует domain.DebateRepo.
func (p *Postgres) GetArgument(ctx context.Context, id int64) (domain.DebateArgument, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+argumentColumns+` FROM debate_arguments WHERE id = $1`, id)
	a, err := scanArgument(row)
	metrics.ObserveNetworkRequest("postgres", "arguments_get", "debate_arguments", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DebateArgument{}, domain.ErrArgumentNotFound
	}
	return a, err
}

// InsertArgument реализует domain.DebateRepo. Вставка аргумента и
// переход состояния выполняются одной транзакцией: уникальный индекс
// по (debate_id, user_id, round_number) защищает от дублей, проверка
// версии — от двойного продвижения состояния.
func (p *Postgres) InsertArgument(ctx context.Context, arg domain.DebateArgument, tr domain.DebateTransition) (domain.DebateArgument, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.DebateArgument{}, err
	}
	defer tx.Rollback(ctx)

	start := time.Now()
	row := tx.QueryRow(ctx, `
INSERT INTO debate_arguments (debate_id, user_id, round_number, content, fact_check_status)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+argumentColumns, arg.DebateID, arg.UserID, arg.RoundNumber, arg.Content, arg.FactCheckStatus)
	saved, err := scanArgument(row)
	metrics.ObserveNetworkRequest("postgres", "arguments_insert", "debate_arguments", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.DebateArgument{}, domain.ErrAlreadyArgued
		}
		return domain.DebateArgument{}, err
	}

	if _, err := applyTransitionTx(ctx, tx, tr); err != nil {
		return domain.DebateArgument{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.DebateArgument{}, err
	}
	return saved, nil
}

// CastVote реализует domain.DebateRepo. Голос и счётчик меняются одной
// транзакцией; уникальный индекс по (debate_id, user_id) защищает от
// повторного голоса. Версия строки растёт, чтобы конкурентное закрытие
// голосования заметило новый голос.
func (p *Postgres) CastVote(ctx context.Context, vote domain.DebateVote) (domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var column string
	switch vote.Choice {
	case domain.VoteChallenger:
		column = "votes_challenger"
	case domain.VoteDefender:
		column = "votes_defender"
	case domain.VoteTie:
		column = "votes_tie"
	default:
		return domain.Debate{}, domain.ErrInvalidChoice
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Debate{}, err
	}
	defer tx.Rollback(ctx)

	start := time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO debate_votes (debate_id, user_id, vote)
VALUES ($1, $2, $3)`, vote.DebateID, vote.UserID, vote.Choice)
	metrics.ObserveNetworkRequest("postgres", "votes_insert", "debate_votes", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Debate{}, domain.ErrAlreadyVoted
		}
		return domain.Debate{}, err
	}

	start = time.Now()
	row := tx.QueryRow(ctx, `
UPDATE debates
SET `+column+` = `+column+` + 1,
    version = version + 1,
    updated_at = now()
WHERE id = $1
RETURNING `+debateColumns, vote.DebateID)
	d, err := scanDebate(row)
	metrics.ObserveNetworkRequest("postgres", "votes_count", "debates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Debate{}, domain.ErrDebateNotFound
	}
	if err != nil {
		return domain.Debate{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Debate{}, err
	}
	return d, nil
}

// GetVoteTotals реализует domain.DebateRepo.
func (p *Postgres) GetVoteTotals(ctx context.Context, debateID int64) (domain.VoteTotals, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var totals domain.VoteTotals
	err := p.pool.QueryRow(ctx, `
SELECT votes_challenger, votes_defender, votes_tie
FROM debates
WHERE id = $1`, debateID).Scan(&totals.Challenger, &totals.Defender, &totals.Tie)
	metrics.ObserveNetworkRequest("postgres", "votes_totals", "debates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VoteTotals{}, domain.ErrDebateNotFound
	}
	return totals, err
}

// ListExpiredVoting реализует domain.DebateRepo.
func (p *Postgres) ListExpiredVoting(ctx context.Context, now time.Time, limit int) ([]domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+debateColumns+`
FROM debates
WHERE status = $1 AND voting_ends_at <= $2
ORDER BY voting_ends_at
LIMIT $3`, domain.DebateStatusVoting, now, limit)
	metrics.ObserveNetworkRequest("postgres", "debates_list_expired", "debates", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debates []domain.Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, err
		}
		debates = append(debates, d)
	}
	return debates, rows.Err()
}

// CompleteDebate реализует domain.DebateRepo.
func (p *Postgres) CompleteDebate(ctx context.Context, debateID, expectedVersion int64, winnerID *int64) (domain.Debate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var winner sql.NullInt64
	if winnerID != nil {
		winner = sql.NullInt64{Int64: *winnerID, Valid: true}
	}

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE debates
SET status = $3,
    winner_id = $4,
    whose_turn_id = NULL,
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND version = $2 AND status = $5
RETURNING `+debateColumns, debateID, expectedVersion, domain.DebateStatusCompleted, winner, domain.DebateStatusVoting)
	d, err := scanDebate(row)
	metrics.ObserveNetworkRequest("postgres", "debates_complete", "debates", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if checkErr := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM debates WHERE id = $1)`, debateID).Scan(&exists); checkErr != nil {
			return domain.Debate{}, checkErr
		}
		if !exists {
			return domain.Debate{}, domain.ErrDebateNotFound
		}
		return domain.Debate{}, domain.ErrVersionConflict
	}
	return d, err
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo   = (*Postgres)(nil)
	_ domain.DebateRepo = (*Postgres)(nil)
	_ domain.PostRepo   = (*Postgres)(nil)
	_ domain.EventRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// trustScoreSQL пересчитывает оценку доверия из счётчиков внутри
// одного UPDATE, чтобы исключить потерю конкурентных обновлений.
const trustScoreSQL = `LEAST(100, GREATEST(0, 50 + LEAST(posts_verified * 2, 30) - posts_false * 5))::numeric(5,2)`

const userColumns = `id, username, trust_score, posts_fact_checked, posts_verified, posts_false, debates_won, debates_lost, tg_chat_id, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u        domain.User
		tgChatID sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Username, &u.TrustScore, &u.PostsFactChecked, &u.PostsVerified, &u.PostsFalse, &u.DebatesWon, &u.DebatesLost, &tgChatID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	if tgChatID.Valid {
		id := tgChatID.Int64
		u.TGChatID = &id
	}
	return u, nil
}

// CreateUser реализует domain.UserRepo.
func (p *Postgres) CreateUser(ctx context.Context, username string) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO users (username)
VALUES ($1)
RETURNING `+userColumns, username)
	user, err := scanUser(row)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	return user, err
}

// GetUser реализует domain.UserRepo.
func (p *Postgres) GetUser(ctx context.Context, id int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	metrics.ObserveNetworkRequest("postgres", "users_get", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

// ApplyFactCheckOutcome реализует domain.UserRepo. Счётчики и оценка
// меняются одним UPDATE, читать-считать-писать в Go не требуется.
func (p *Postgres) ApplyFactCheckOutcome(ctx context.Context, userID int64, verified, falsified bool) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	verifiedInc := 0
	if verified {
		verifiedInc = 1
	}
	falseInc := 0
	if falsified {
		falseInc = 1
	}

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE users
SET posts_fact_checked = posts_fact_checked + 1,
    posts_verified = posts_verified + $2,
    posts_false = posts_false + $3,
    trust_score = `+trustScoreSQL+`,
    updated_at = now()
WHERE id = $1
RETURNING `+userColumns, userID, verifiedInc, falseInc)
	user, err := scanUser(row)
	metrics.ObserveNetworkRequest("postgres", "users_factcheck_outcome", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

// RecalculateTrustScore реализует domain.UserRepo.
func (p *Postgres) RecalculateTrustScore(ctx context.Context, userID int64) (domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE users
SET trust_score = `+trustScoreSQL+`,
    updated_at = now()
WHERE id = $1
RETURNING `+userColumns, userID)
	user, err := scanUser(row)
	metrics.ObserveNetworkRequest("postgres", "users_trust_recalc", "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

// RecordDebateResult реализует domain.UserRepo.
func (p *Postgres) RecordDebateResult(ctx context.Context, winnerID, loserID int64) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "users", start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	start = time.Now()
	_, err = tx.Exec(ctx, `UPDATE users SET debates_won = debates_won + 1, updated_at = now() WHERE id = $1`, winnerID)
	metrics.ObserveNetworkRequest("postgres", "users_record_win", "users", start, err)
	if err != nil {
		return err
	}
	start = time.Now()
	_, err = tx.Exec(ctx, `UPDATE users SET debates_lost = debates_lost + 1, updated_at = now() WHERE id = $1`, loserID)
	metrics.ObserveNetworkRequest("postgres", "users_record_loss", "users", start, err)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListTopByTrust реализует domain.UserRepo.
func (p *Postgres) ListTopByTrust(ctx context.Context, limit int) ([]domain.User, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY trust_score DESC, id
LIMIT $1`, limit)
	metrics.ObserveNetworkRequest("postgres", "users_leaderboard", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// RecordEvent реализует domain.EventRepo.
func (p *Postgres) RecordEvent(ctx context.Context, event domain.DomainEvent) error {
	if event.Event == "" {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var userID sql.NullInt64
	if event.UserID != nil {
		userID = sql.NullInt64{Int64: *event.UserID, Valid: true}
	}
	var debateID sql.NullInt64
	if event.DebateID != nil {
		debateID = sql.NullInt64{Int64: *event.DebateID, Valid: true}
	}
	var payload []byte
	if event.Metadata != nil {
		if data, err := json.Marshal(event.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO events (event, user_id, debate_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4, $5)
`, event.Event, userID, debateID, payload, event.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "events_insert", "events", start, err)
	return err
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

const postColumns = `id, user_id, content, fact_check_status, fact_check_score, fact_check_payload, created_at`

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		p     domain.Post
		score sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Content, &p.FactCheckStatus, &score, &p.FactCheckPayload, &p.CreatedAt)
	if err != nil {
		return domain.Post{}, err
	}
	if score.Valid {
		v := score.Float64
		p.FactCheckScore = &v
	}
	return p, nil
}

// CreatePost реализует domain.PostRepo.
func (p *Postgres) CreatePost(ctx context.Context, post domain.Post) (domain.Post, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO posts (user_id, content, fact_check_status)
VALUES ($1, $2, $3)
RETURNING `+postColumns, post.UserID, post.Content, post.FactCheckStatus)
	created, err := scanPost(row)
	metrics.ObserveNetworkRequest("postgres", "posts_insert", "posts", start, err)
	return created, err
}

// GetPost реализует domain.PostRepo.
func (p *Postgres) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	post, err := scanPost(row)
	metrics.ObserveNetworkRequest("postgres", "posts_get", "posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return post, err
}

// ApplyPostVerdict реализует domain.PostRepo. Условие по статусу
// делает запись вердикта идемпотентной: повторное применение
// возвращает ErrAlreadyChecked.
func (p *Postgres) ApplyPostVerdict(ctx context.Context, postID int64, verdict domain.FactCheckVerdict) (domain.Post, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE posts
SET fact_check_status = $2,
    fact_check_score = $3,
    fact_check_payload = $4
WHERE id = $1 AND fact_check_status = $5
RETURNING `+postColumns, postID, verdict.Status, confidenceScore(verdict.Confidence), verdict.Raw, domain.FactCheckUnchecked)
	post, err := scanPost(row)
	metrics.ObserveNetworkRequest("postgres", "posts_verdict", "posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if checkErr := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); checkErr != nil {
			return domain.Post{}, checkErr
		}
		if !exists {
			return domain.Post{}, domain.ErrPostNotFound
		}
		return domain.Post{}, domain.ErrAlreadyChecked
	}
	return post, err
}

// ApplyArgumentVerdict реализует domain.PostRepo.
func (p *Postgres) ApplyArgumentVerdict(ctx context.Context, argumentID int64, verdict domain.FactCheckVerdict) (domain.DebateArgument, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE debate_arguments
SET fact_check_status = $2,
    fact_check_score = $3,
    fact_check_payload = $4
WHERE id = $1 AND fact_check_status = $5
RETURNING `+argumentColumns, argumentID, verdict.Status, confidenceScore(verdict.Confidence), verdict.Raw, domain.FactCheckUnchecked)
	arg, err := scanArgument(row)
	metrics.ObserveNetworkRequest("postgres", "arguments_verdict", "debate_arguments", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if checkErr := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM debate_arguments WHERE id = $1)`, argumentID).Scan(&exists); checkErr != nil {
			return domain.DebateArgument{}, checkErr
		}
		if !exists {
			return domain.DebateArgument{}, domain.ErrArgumentNotFound
		}
		return domain.DebateArgument{}, domain.ErrAlreadyChecked
	}
	return arg, err
}

// confidenceScore переводит уверенность 0..100 в долю 0..1.
func confidenceScore(confidence int) *float64 {
	v := float64(confidence) / 100
	return &v
}

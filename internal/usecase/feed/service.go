package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

// OutcomeRecorder учитывает вердикт в оценке доверия автора.
type OutcomeRecorder interface {
	RecordFactCheckOutcome(ctx context.Context, userID int64, status domain.FactCheckStatus) (domain.User, error)
}

// Service управляет публикациями и точкой интеграции проверки фактов.
type Service struct {
	posts   domain.PostRepo
	debates domain.DebateRepo
	users   domain.UserRepo
	trust   OutcomeRecorder
	queue   domain.FactCheckQueue
	log     zerolog.Logger
}

// NewService создаёт сервис публикаций. queue может быть nil, тогда
// постановка проверок в очередь недоступна.
func NewService(posts domain.PostRepo, debates domain.DebateRepo, users domain.UserRepo, trust OutcomeRecorder, queue domain.FactCheckQueue, logger zerolog.Logger) *Service {
	return &Service{posts: posts, debates: debates, users: users, trust: trust, queue: queue, log: logger}
}

// CreatePost создаёт публикацию пользователя.
func (s *Service) CreatePost(ctx context.Context, userID int64, content string) (domain.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Post{}, domain.ErrContentInvalid
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return domain.Post{}, fmt.Errorf("получение автора: %w", err)
	}
	return s.posts.CreatePost(ctx, domain.Post{
		UserID:          userID,
		Content:         content,
		FactCheckStatus: domain.FactCheckUnchecked,
	})
}

// GetPost возвращает публикацию по идентификатору.
func (s *Service) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	return s.posts.GetPost(ctx, id)
}

// RequestPostCheck ставит публикацию в очередь на проверку фактов.
func (s *Service) RequestPostCheck(ctx context.Context, postID int64) (domain.FactCheckJob, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return domain.FactCheckJob{}, err
	}
	if !post.FactCheckStatus.Pending() {
		return domain.FactCheckJob{}, domain.ErrAlreadyChecked
	}
	return s.enqueue(ctx, domain.FactCheckTargetPost, post.ID)
}

// RequestArgumentCheck ставит аргумент дебатов в очередь на проверку.
func (s *Service) RequestArgumentCheck(ctx context.Context, argumentID int64) (domain.FactCheckJob, error) {
	arg, err := s.debates.GetArgument(ctx, argumentID)
	if err != nil {
		return domain.FactCheckJob{}, err
	}
	if !arg.FactCheckStatus.Pending() {
		return domain.FactCheckJob{}, domain.ErrAlreadyChecked
	}
	return s.enqueue(ctx, domain.FactCheckTargetArgument, arg.ID)
}

func (s *Service) enqueue(ctx context.Context, target domain.FactCheckTarget, targetID int64) (domain.FactCheckJob, error) {
	if s.queue == nil {
		return domain.FactCheckJob{}, domain.ErrFactCheckUnavailable
	}
	job := domain.FactCheckJob{
		ID:          uuid.NewString(),
		Target:      target,
		TargetID:    targetID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.FactCheckJob{}, fmt.Errorf("постановка проверки в очередь: %w", err)
	}
	return job, nil
}

// ContentFor возвращает проверяемый текст для задачи.
func (s *Service) ContentFor(ctx context.Context, job domain.FactCheckJob) (string, error) {
	switch job.Target {
	case domain.FactCheckTargetPost:
		post, err := s.posts.GetPost(ctx, job.TargetID)
		if err != nil {
			return "", err
		}
		return post.Content, nil
	case domain.FactCheckTargetArgument:
		arg, err := s.debates.GetArgument(ctx, job.TargetID)
		if err != nil {
			return "", err
		}
		return arg.Content, nil
	}
	return "", fmt.Errorf("неизвестная цель проверки: %q", job.Target)
}

// ApplyVerdict записывает вердикт на цель задачи и учитывает его в
// оценке доверия автора. Повторное применение отклоняется хранилищем,
// счёт автора при этом не меняется.
func (s *Service) ApplyVerdict(ctx context.Context, job domain.FactCheckJob, verdict domain.FactCheckVerdict) error {
	if !verdict.Status.Valid() || verdict.Status == domain.FactCheckUnchecked {
		return domain.ErrInvalidVerdict
	}
	start := time.Now()

	var authorID int64
	switch job.Target {
	case domain.FactCheckTargetPost:
		post, err := s.posts.ApplyPostVerdict(ctx, job.TargetID, verdict)
		if err != nil {
			return err
		}
		authorID = post.UserID
	case domain.FactCheckTargetArgument:
		arg, err := s.posts.ApplyArgumentVerdict(ctx, job.TargetID, verdict)
		if err != nil {
			return err
		}
		authorID = arg.UserID
	default:
		return fmt.Errorf("неизвестная цель проверки: %q", job.Target)
	}

	metrics.ObserveFactCheck(string(verdict.Status), start)
	if s.trust != nil {
		if _, err := s.trust.RecordFactCheckOutcome(ctx, authorID, verdict.Status); err != nil {
			return fmt.Errorf("учёт вердикта в доверии: %w", err)
		}
	}
	return nil
}

package domain

import (
	"context"
	"time"
)

// FactCheckStatus описывает вердикт проверки фактов.
type FactCheckStatus string

const (
	FactCheckUnchecked    FactCheckStatus = "unchecked"
	FactCheckVerified     FactCheckStatus = "verified"
	FactCheckLikelyTrue   FactCheckStatus = "likely_true"
	FactCheckDisputed     FactCheckStatus = "disputed"
	FactCheckFalse        FactCheckStatus = "false"
	FactCheckUnverifiable FactCheckStatus = "unverifiable"
)

// Valid сообщает, является ли статус известным вердиктом.
func (s FactCheckStatus) Valid() bool {
	switch s {
	case FactCheckUnchecked, FactCheckVerified, FactCheckLikelyTrue,
		FactCheckDisputed, FactCheckFalse, FactCheckUnverifiable:
		return true
	}
	return false
}

// Pending сообщает, что проверка ещё не выполнялась. Пустой статус
// нулевого значения приравнивается к непроверенному.
func (s FactCheckStatus) Pending() bool {
	return s == "" || s == FactCheckUnchecked
}

// CountsVerified сообщает, засчитывается ли вердикт как подтверждённый.
func (s FactCheckStatus) CountsVerified() bool {
	return s == FactCheckVerified || s == FactCheckLikelyTrue
}

// CountsFalse сообщает, засчитывается ли вердикт как ложный.
func (s FactCheckStatus) CountsFalse() bool {
	return s == FactCheckFalse
}

// FactCheckVerdict — результат внешней проверки фактов.
type FactCheckVerdict struct {
	Status      FactCheckStatus
	Confidence  int
	Explanation string
	Raw         []byte
}

// FactChecker выполняет проверку текста внешним сервисом.
type FactChecker interface {
	Check(ctx context.Context, content string) (FactCheckVerdict, error)
}

// FactCheckTarget описывает тип проверяемой сущности.
type FactCheckTarget string

const (
	// FactCheckTargetPost — проверяется обычная публикация.
	FactCheckTargetPost FactCheckTarget = "post"
	// FactCheckTargetArgument — проверяется аргумент дебатов.
	FactCheckTargetArgument FactCheckTarget = "argument"
)

// FactCheckJob содержит задачу на проверку фактов.
type FactCheckJob struct {
	ID          string          `json:"job_id"`
	Target      FactCheckTarget `json:"target"`
	TargetID    int64           `json:"target_id"`
	RequestedAt time.Time       `json:"requested_at"`
}

// FactCheckQueue описывает очередь задач проверки фактов.
type FactCheckQueue interface {
	Enqueue(ctx context.Context, job FactCheckJob) error
	Pop(ctx context.Context) (FactCheckJob, error)
}

package domain

import "math"

const (
	trustBase          = 50.0
	trustVerifiedStep  = 2.0
	trustVerifiedLimit = 30.0
	trustFalseStep     = 5.0
)

// TrustScore вычисляет доверие по счётчикам проверок фактов.
// Бонус за подтверждённые посты ограничен +30, штраф за ложные не ограничен.
// Победы и поражения в дебатах на оценку не влияют.
func TrustScore(verified, falsified int) float64 {
	bonus := math.Min(float64(verified)*trustVerifiedStep, trustVerifiedLimit)
	raw := trustBase + bonus - float64(falsified)*trustFalseStep
	clamped := math.Min(100, math.Max(0, raw))
	return math.Round(clamped*100) / 100
}

// TrustTier описывает категорию доверия пользователя.
type TrustTier string

const (
	TrustTierNewcomer     TrustTier = "newcomer"
	TrustTierUnreliable   TrustTier = "unreliable"
	TrustTierQuestionable TrustTier = "questionable"
	TrustTierNeutral      TrustTier = "neutral"
	TrustTierReliable     TrustTier = "reliable"
	TrustTierTrusted      TrustTier = "trusted"
)

// TierForScore возвращает категорию для оценки. nil означает отсутствие оценки.
func TierForScore(score *float64) TrustTier {
	if score == nil {
		return TrustTierNewcomer
	}
	switch s := *score; {
	case s >= 90:
		return TrustTierTrusted
	case s >= 75:
		return TrustTierReliable
	case s >= 50:
		return TrustTierNeutral
	case s >= 25:
		return TrustTierQuestionable
	default:
		return TrustTierUnreliable
	}
}

// Tier возвращает категорию доверия пользователя.
func (u User) Tier() TrustTier {
	score := u.TrustScore
	return TierForScore(&score)
}

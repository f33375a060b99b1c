package domain

import "testing"

func TestTrustScore(t *testing.T) {
	tests := []struct {
		name      string
		verified  int
		falsified int
		want      float64
	}{
		{name: "default", verified: 0, falsified: 0, want: 50.00},
		{name: "single verified", verified: 1, falsified: 0, want: 52.00},
		{name: "near cap", verified: 14, falsified: 0, want: 78.00},
		{name: "cap reached", verified: 15, falsified: 0, want: 80.00},
		{name: "cap holds", verified: 50, falsified: 0, want: 80.00},
		{name: "three false", verified: 0, falsified: 3, want: 35.00},
		{name: "floor clamp", verified: 0, falsified: 20, want: 0.00},
		{name: "mixed", verified: 10, falsified: 2, want: 60.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrustScore(tt.verified, tt.falsified); got != tt.want {
				t.Fatalf("TrustScore(%d, %d) = %v, want %v", tt.verified, tt.falsified, got, tt.want)
			}
		})
	}
}

func TestTrustScoreCapMonotonic(t *testing.T) {
	if TrustScore(14, 0) >= TrustScore(15, 0) {
		t.Fatalf("оценка должна расти до достижения лимита")
	}
	if TrustScore(15, 0) != TrustScore(50, 0) {
		t.Fatalf("после лимита оценка не должна меняться")
	}
}

func TestTierForScore(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		score *float64
		want  TrustTier
	}{
		{name: "newcomer", score: nil, want: TrustTierNewcomer},
		{name: "trusted", score: score(90), want: TrustTierTrusted},
		{name: "reliable", score: score(75), want: TrustTierReliable},
		{name: "neutral", score: score(50), want: TrustTierNeutral},
		{name: "questionable", score: score(25), want: TrustTierQuestionable},
		{name: "unreliable", score: score(24.99), want: TrustTierUnreliable},
		{name: "zero", score: score(0), want: TrustTierUnreliable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierForScore(tt.score); got != tt.want {
				t.Fatalf("TierForScore = %v, want %v", got, tt.want)
			}
		})
	}
}

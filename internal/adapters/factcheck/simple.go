package factcheck

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"debate-arena/internal/domain"
)

// SimpleChecker реализует доменный интерфейс FactChecker эвристикой.
// Используется в окружениях без ключа OpenAI.
type SimpleChecker struct{}

// NewSimple создаёт FactChecker.
func NewSimple() *SimpleChecker {
	return &SimpleChecker{}
}

// Check присваивает вердикт по простым признакам текста: короткие и
// эмоциональные утверждения считаются непроверяемыми, остальные —
// спорными с низкой уверенностью.
func (s *SimpleChecker) Check(ctx context.Context, content string) (domain.FactCheckVerdict, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.FactCheckVerdict{}, domain.ErrContentInvalid
	}

	status := domain.FactCheckDisputed
	confidence := 40
	explanation := "Эвристика: утверждение требует ручной проверки"
	switch {
	case utf8.RuneCountInString(content) < 20:
		status = domain.FactCheckUnverifiable
		confidence = 30
		explanation = "Эвристика: слишком короткое утверждение"
	case strings.Contains(content, "!") || strings.Contains(content, "?"):
		status = domain.FactCheckUnverifiable
		confidence = 35
		explanation = "Эвристика: эмоциональное или вопросительное утверждение"
	}

	raw, _ := json.Marshal(map[string]any{
		"verdict":     status,
		"confidence":  confidence,
		"explanation": explanation,
	})
	return domain.FactCheckVerdict{
		Status:      status,
		Confidence:  confidence,
		Explanation: explanation,
		Raw:         raw,
	}, nil
}

package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"debate-arena/internal/domain"
	openai "debate-arena/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует проверку фактов через OpenAI Chat Completions.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewOpenAI создаёт провайдер проверки фактов.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

type verdictPayload struct {
	Verdict     string `json:"verdict"`
	Confidence  int    `json:"confidence"`
	Explanation string `json:"explanation"`
}

// Check проверяет фактическую достоверность текста.
func (o *OpenAI) Check(ctx context.Context, content string) (domain.FactCheckVerdict, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.FactCheckVerdict{}, domain.ErrContentInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Оцени фактическую достоверность утверждения.
Верни JSON формата {"verdict": "...", "confidence": 0, "explanation": "..."} без пояснений.
Поле verdict — одно из: verified, likely_true, disputed, false, unverifiable.
Поле confidence — целое от 0 до 100.
Поле explanation — краткое обоснование на русском языке.
Утверждение:
%s`, clipRunes(content, 2000))

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		MaxTokens:   400,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "Ты фактчекер. Оценивай только проверяемые утверждения и не выдумывай источники.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.FactCheckVerdict{}, fmt.Errorf("%w: %v", domain.ErrFactCheckUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return domain.FactCheckVerdict{}, fmt.Errorf("%w: пустой ответ", domain.ErrFactCheckUnavailable)
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed verdictPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.FactCheckVerdict{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}

	status := domain.FactCheckStatus(strings.TrimSpace(parsed.Verdict))
	if !status.Valid() || status == domain.FactCheckUnchecked {
		// Модель нарушила формат: считаем утверждение непроверяемым.
		status = domain.FactCheckUnverifiable
	}
	return domain.FactCheckVerdict{
		Status:      status,
		Confidence:  clampConfidence(parsed.Confidence),
		Explanation: strings.TrimSpace(parsed.Explanation),
		Raw:         []byte(raw),
	}, nil
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

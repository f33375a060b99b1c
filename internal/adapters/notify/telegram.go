package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"debate-arena/internal/domain"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram реализует доменный интерфейс Notifier через Telegram-бота.
// Пользователи без привязанного чата молча пропускаются.
type Telegram struct {
	bot sender
	log zerolog.Logger
}

// NewTelegram создаёт нотификатор.
func NewTelegram(bot *tgbotapi.BotAPI, logger zerolog.Logger) *Telegram {
	return &Telegram{bot: bot, log: logger}
}

var _ domain.Notifier = (*Telegram)(nil)

// ChallengeCreated уведомляет защитника о новом вызове.
func (t *Telegram) ChallengeCreated(ctx context.Context, debate domain.Debate, challenger, defender domain.User) error {
	text := fmt.Sprintf("⚔️ @%s вызывает вас на дебаты: «%s». Примите или отклоните вызов.", challenger.Username, debate.Topic)
	return t.send(defender, text)
}

// ChallengeAccepted уведомляет претендента, что вызов принят и его ход.
func (t *Telegram) ChallengeAccepted(ctx context.Context, debate domain.Debate, challenger, defender domain.User) error {
	text := fmt.Sprintf("✅ @%s принял вызов «%s». Раунд 1, ваш ход.", defender.Username, debate.Topic)
	return t.send(challenger, text)
}

// VotingStarted уведомляет обе стороны о начале голосования.
func (t *Telegram) VotingStarted(ctx context.Context, debate domain.Debate, challenger, defender domain.User) error {
	text := fmt.Sprintf("🗳 Дебаты «%s» завершили %d раунда, началось голосование.", debate.Topic, domain.MaxRounds)
	if err := t.send(challenger, text); err != nil {
		return err
	}
	return t.send(defender, text)
}

// DebateCompleted уведомляет обе стороны об итоге.
func (t *Telegram) DebateCompleted(ctx context.Context, debate domain.Debate, challenger, defender domain.User) error {
	result := "Ничья, победитель не определён."
	if debate.WinnerID != nil {
		winner := challenger
		if *debate.WinnerID == defender.ID {
			winner = defender
		}
		result = fmt.Sprintf("Победил @%s.", winner.Username)
	}
	text := fmt.Sprintf("🏁 Дебаты «%s» завершены. %s Голоса: %d / %d / %d.", debate.Topic, result, debate.VotesChallenger, debate.VotesDefender, debate.VotesTie)
	if err := t.send(challenger, text); err != nil {
		return err
	}
	return t.send(defender, text)
}

func (t *Telegram) send(user domain.User, text string) error {
	if user.TGChatID == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(*user.TGChatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn().Err(err).Int64("user_id", user.ID).Msg("не удалось отправить уведомление")
		return fmt.Errorf("отправка уведомления: %w", err)
	}
	return nil
}

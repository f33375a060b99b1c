package domain

import "errors"

var (
	// ErrUserNotFound возвращается, когда пользователь не найден.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrDebateNotFound возвращается, когда дебаты не найдены.
	ErrDebateNotFound = errors.New("дебаты не найдены")
	// ErrArgumentNotFound возвращается, когда аргумент не найден.
	ErrArgumentNotFound = errors.New("аргумент не найден")
	// ErrPostNotFound возвращается, когда публикация не найдена.
	ErrPostNotFound = errors.New("публикация не найдена")

	// ErrSelfChallenge возвращается при попытке вызвать самого себя.
	ErrSelfChallenge = errors.New("нельзя вызвать на дебаты самого себя")
	// ErrTopicInvalid возвращается при пустой или слишком длинной теме.
	ErrTopicInvalid = errors.New("некорректная тема дебатов")
	// ErrContentInvalid возвращается при пустом тексте аргумента или публикации.
	ErrContentInvalid = errors.New("текст не может быть пустым")
	// ErrInvalidChoice возвращается при неизвестном варианте голоса.
	ErrInvalidChoice = errors.New("некорректный вариант голоса")
	// ErrParticipantVote возвращается, когда участник голосует в своих дебатах.
	ErrParticipantVote = errors.New("участник дебатов не может голосовать")
	// ErrInvalidVerdict возвращается при неизвестном вердикте проверки.
	ErrInvalidVerdict = errors.New("некорректный вердикт проверки фактов")

	// ErrNotDefender возвращается, когда отвечать на вызов пытается не защитник.
	ErrNotDefender = errors.New("ответить на вызов может только защитник")
	// ErrNotParticipant возвращается, когда действие доступно только участнику.
	ErrNotParticipant = errors.New("действие доступно только участнику дебатов")
	// ErrWrongStatus возвращается, когда статус дебатов не допускает операцию.
	ErrWrongStatus = errors.New("статус дебатов не допускает операцию")
	// ErrNotYourTurn возвращается при попытке высказаться вне очереди.
	ErrNotYourTurn = errors.New("сейчас не ваша очередь")
	// ErrAlreadyArgued возвращается при повторном аргументе в том же раунде.
	ErrAlreadyArgued = errors.New("аргумент в этом раунде уже подан")
	// ErrAlreadyVoted возвращается при повторном голосе по тем же дебатам.
	ErrAlreadyVoted = errors.New("голос по этим дебатам уже учтён")
	// ErrVotingClosed возвращается при голосе после конца окна голосования.
	ErrVotingClosed = errors.New("окно голосования закрыто")
	// ErrAlreadyChecked возвращается при повторной проверке той же сущности.
	ErrAlreadyChecked = errors.New("проверка фактов уже выполнена")

	// ErrVersionConflict возвращается при конкурентном изменении дебатов.
	ErrVersionConflict = errors.New("дебаты изменены конкурентной операцией")
	// ErrFactCheckUnavailable возвращается, когда внешний сервис проверки недоступен.
	ErrFactCheckUnavailable = errors.New("сервис проверки фактов недоступен")
)

// ErrorKind классифицирует ошибки ядра для транспортного слоя.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidArgument
	KindIllegalState
	KindUnavailable
)

// KindOf возвращает класс ошибки из таксономии ядра.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrDebateNotFound),
		errors.Is(err, ErrArgumentNotFound),
		errors.Is(err, ErrPostNotFound):
		return KindNotFound
	case errors.Is(err, ErrSelfChallenge),
		errors.Is(err, ErrTopicInvalid),
		errors.Is(err, ErrContentInvalid),
		errors.Is(err, ErrInvalidChoice),
		errors.Is(err, ErrParticipantVote),
		errors.Is(err, ErrInvalidVerdict):
		return KindInvalidArgument
	case errors.Is(err, ErrNotDefender),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrWrongStatus),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrAlreadyArgued),
		errors.Is(err, ErrAlreadyVoted),
		errors.Is(err, ErrVotingClosed),
		errors.Is(err, ErrAlreadyChecked),
		errors.Is(err, ErrVersionConflict):
		return KindIllegalState
	case errors.Is(err, ErrFactCheckUnavailable):
		return KindUnavailable
	}
	return KindUnknown
}

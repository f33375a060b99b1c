package http

import (
	"net/http"
	"strconv"

	"debate-arena/internal/domain"
)

// userIDHeader задаёт действующего пользователя запроса. Проверка
// подлинности выполняется внешним шлюзом до этого сервиса.
const userIDHeader = "X-User-ID"

// ActingUser возвращает идентификатор действующего пользователя.
// Идентификатор передаётся дальше явным аргументом: ядро не читает
// контекст запроса.
func ActingUser(r *http.Request) (int64, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return 0, domain.ErrUserNotFound
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrUserNotFound
	}
	return id, nil
}

// RequireUser отклоняет запросы без идентификатора пользователя.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := ActingUser(r); err != nil {
			WriteError(w, http.StatusUnauthorized, "заголовок X-User-ID отсутствует или некорректен")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package middleware содержит HTTP middleware сервера витрины.
package middleware

import (
	"net/http"
)

// TokenSource сообщает токен текущей сессии.
type TokenSource interface {
	Token() string
}

// RequireSession пропускает запрос только при наличии токена сессии. Иначе вызывает
// onDenied (запоминание маршрута и переход на вход) и отвечает 401 с адресом входа.
func RequireSession(tokens TokenSource, loginPath string, onDenied func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens.Token() == "" {
				if onDenied != nil {
					onDenied(r)
				}
				w.Header().Set("Location", loginPath)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

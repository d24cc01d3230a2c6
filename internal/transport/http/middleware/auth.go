package httpmw

import (
	"context"
	"net/http"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

type SessionOpener interface {
	Open(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware резолвит cookie-сессию в пользователя; без валидной
// сессии — 401. Повторной проверки внутри обработчиков нет.
func AuthMiddleware(session SessionOpener, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if ck, err := r.Cookie(cookieName); err == nil {
				token = ck.Value
			}

			user, err := session.Open(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthenticated"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromCtx(ctx context.Context) *domain.User {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

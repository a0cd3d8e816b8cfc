package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/handlers"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
)

// TokenAuthenticator resolves a bearer token to an identity.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string, kind token.Kind) (*auth.Identity, error)
}

// Authenticate создает middleware для проверки bearer токена заданного вида.
// On success the identity is stored in the request context.
func Authenticate(logger *slog.Logger, authn TokenAuthenticator, resp *handlers.Responder, kind token.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				resp.WriteError(w, r, &auth.Error{Kind: auth.KindInvalidToken, Message: auth.MsgInvalidToken, Err: err})
				return
			}

			id, err := authn.Authenticate(r.Context(), raw, kind)
			if err != nil {
				resp.WriteError(w, r, err)
				return
			}

			logger.DebugContext(r.Context(), "user authenticated",
				slog.String("user_id", id.User.ID),
				slog.String("token", kind.String()),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RestrictTo пропускает только пользователей с одной из ролей.
// Must run after Authenticate.
func RestrictTo(resp *handlers.Responder, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.IdentityFrom(r.Context())
			if err := auth.RestrictTo(id, roles...); err != nil {
				resp.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	// Ожидаем формат: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("empty bearer token")
	}
	return raw, nil
}

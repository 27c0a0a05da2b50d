package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type userContextKey struct{}

// UserFromContext returns the user placed on the request by requireUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok
}

// requireUser resolves the bearer token to an active user. Any token or
// lookup problem is a 401; a disabled account is a 400.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.unauthorized(w, detailBadToken)
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			s.unauthorized(w, detailBadToken)
			return
		}
		user, err := s.users.Get(r.Context(), claims.Subject)
		if err != nil {
			if !errors.Is(err, ErrUserNotFound) {
				s.log.WithError(err).Warn("user lookup failed")
			}
			s.unauthorized(w, detailBadToken)
			return
		}
		if user.Disabled {
			writeDetail(w, http.StatusBadRequest, detailInactive)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}

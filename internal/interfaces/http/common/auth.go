package common

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// SessionDecoder turns a bearer token back into a session.
type SessionDecoder interface {
	Decode(token string) (session.Session, error)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return token, token != ""
}

// RequireSession verifies the bearer token and stores the session of the given kind
// in the request context. Missing, invalid or mismatched tokens get 401.
func RequireSession(logger logrus.FieldLogger, codec SessionDecoder, kind session.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				WriteJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "bearer token required"})
				return
			}
			sess, err := codec.Decode(token)
			if err != nil {
				logger.WithError(err).Debug("rejected session token")
				WriteJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired session"})
				return
			}
			if sess.Kind != kind {
				WriteJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "session not valid for this endpoint"})
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

// SessionFrom returns the session placed by RequireSession, or the zero session.
func SessionFrom(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

package http

import (
	"context"
	"net/http"
	"strings"

	applog "tracker/internal/log"
	"tracker/internal/session"
)

type contextKey string

const (
	ownerKey   contextKey = "owner"
	sessionKey contextKey = "session"
)

// withIdentity resolves the caller from the identity header. Without one
// the configured placeholder owner is used.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := ""
		if s.identityHeader != "" {
			owner = strings.TrimSpace(r.Header.Get(s.identityHeader))
		}
		if owner == "" {
			owner = s.defaultUser
		}

		ctx := context.WithValue(r.Context(), ownerKey, owner)
		ctx = applog.IntoContext(ctx, applog.FromContext(ctx).With(applog.FieldUser, owner))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withSession attaches the browser session, issuing a cookie when the
// request carried no live one.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(session.CookieName); err == nil {
			id = c.Value
		}

		sess, created := s.sessions.Resolve(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(s.sessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			s.metrics.SetActiveSessions(s.sessions.Size())
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

package server

import (
	"net/http"

	"github.com/nirmal8344/ScramblerKey/internal/session"
)

const sessionCookie = "session_id"

// clientSession loads (or transparently creates) the caller's session
// from the id cookie. Expired or unknown ids yield a fresh session; a
// newly minted id is pushed back as an HttpOnly cookie.
func (s *Server) clientSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	sess, err := s.sessions.GetOrCreate(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

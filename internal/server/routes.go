package server

import (
	"net/http"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
)

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/keyboard/layout", s.handleLayout)
	s.mux.HandleFunc("/api/keyboard/input", s.handleInput)
	s.mux.HandleFunc("/api/keyboard/clear", s.handleClear)
	s.mux.HandleFunc("/api/keyboard/backspace", s.handleBackspace)

	s.mux.HandleFunc("/api/auth", s.handleAuthenticate)

	protected := auth.AuthRequired(s.signer)
	adminOnly := auth.RequireRole(auth.RoleAdmin)
	s.mux.Handle("/api/admin/users", protected(adminOnly(http.HandlerFunc(s.handleAdminUsers))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nirmal8344/ScramblerKey/internal/input"
)

type authReq struct {
	IsSignup bool `json:"isSignup"`
}

type authResp struct {
	Outcome   input.AuthOutcome `json:"outcome"`
	Message   string            `json:"message"`
	Token     string            `json:"token,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

type adminUserResp struct {
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleAuthenticate submits the session's buffers as one signup or
// login attempt. The identifier and secret never travel in this
// request; they were accumulated keystroke by keystroke.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.rlAuthIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}

	var req authReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	sess, err := s.clientSession(w, r)
	if err != nil {
		http.Error(w, "session load failed", http.StatusInternalServerError)
		return
	}
	if !s.rlAuthSession.allow(sess.ID) {
		tooMany(w, 60)
		return
	}

	res, err := s.gateway.Authenticate(r.Context(), sess, req.IsSignup)
	if err != nil {
		s.logger.Printf("authenticate: %v", err)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	switch res.Outcome {
	case input.AuthMissingCredentials:
		writeJSONStatus(w, http.StatusBadRequest, authResp{
			Outcome: res.Outcome,
			Message: "Both identifier and secret must be typed on the secure keyboard",
		})
	case input.AuthIdentifierTaken:
		writeJSONStatus(w, http.StatusConflict, authResp{
			Outcome: res.Outcome,
			Message: "Identifier already taken",
		})
	case input.AuthInvalidCredentials:
		writeJSONStatus(w, http.StatusUnauthorized, authResp{
			Outcome: res.Outcome,
			Message: "Invalid credentials",
		})
	case input.AuthCreated, input.AuthAuthenticated:
		resp := authResp{Outcome: res.Outcome, Message: "Welcome back!"}
		if res.Outcome == input.AuthCreated {
			resp.Message = "Account created successfully!"
		}
		tok, exp, err := s.signer.IssueToken(res.User.Identifier, res.User.Roles)
		if err != nil {
			s.logger.Printf("token issue: %v", err)
			http.Error(w, "token issue failed", http.StatusInternalServerError)
			return
		}
		resp.Token = tok
		resp.ExpiresAt = &exp
		writeJSON(w, resp)
	default:
		http.Error(w, "unexpected outcome", http.StatusInternalServerError)
	}
}

// handleAdminUsers lists registered identifiers. Admin role required;
// digests are never disclosed.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	users, err := s.users.List()
	if err != nil {
		s.logger.Printf("list users: %v", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResp{Identifier: u.Identifier, CreatedAt: u.CreatedAt})
	}
	writeJSON(w, out)
}

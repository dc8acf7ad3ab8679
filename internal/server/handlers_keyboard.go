package server

import (
	"encoding/json"
	"net/http"

	"github.com/nirmal8344/ScramblerKey/internal/input"
	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
	"github.com/nirmal8344/ScramblerKey/internal/session"
)

type layoutResp struct {
	Layout keyboard.Layout `json:"layout"`
}

type inputReq struct {
	keyboard.Point
	keyboard.Geometry
	Scramble    *bool  `json:"scramble"`
	IsUppercase *bool  `json:"isUppercase"`
	TargetField string `json:"targetField,omitempty"`
}

type inputResp struct {
	Outcome input.Outcome   `json:"outcome"`
	Key     string          `json:"key,omitempty"`
	Layout  keyboard.Layout `json:"layout,omitempty"`
	Count   *int            `json:"count,omitempty"`
	Value   *string         `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type bufferReq struct {
	TargetField string `json:"targetField,omitempty"`
}

type bufferResp struct {
	OK    bool    `json:"ok"`
	Count *int    `json:"count,omitempty"`
	Value *string `json:"value,omitempty"`
}

// handleLayout issues a fresh layout for the session and persists it
// as the layout subsequent coordinates resolve against. scramble
// defaults to false (a reset to the home layout), isUppercase to true.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := s.clientSession(w, r)
	if err != nil {
		http.Error(w, "session load failed", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	scramble := q.Get("scramble") == "true"
	uppercase := q.Get("isUppercase") != "false"

	sess.Layout = keyboard.Generate(scramble, uppercase)
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		http.Error(w, "session save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, layoutResp{Layout: sess.Layout})
}

// handleInput resolves one coordinate event against the session's
// stored layout. scramble/isUppercase steer the next layout and
// default to true (the original client omits them for plain entry).
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req inputReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	opts := input.Options{
		Scramble:  req.Scramble == nil || *req.Scramble,
		Uppercase: req.IsUppercase == nil || *req.IsUppercase,
	}
	if req.TargetField != "" {
		field, ok := session.ParseField(req.TargetField)
		if !ok {
			http.Error(w, "unknown target field", http.StatusBadRequest)
			return
		}
		opts.Target = &field
	}

	sess, err := s.clientSession(w, r)
	if err != nil {
		http.Error(w, "session load failed", http.StatusInternalServerError)
		return
	}

	res, err := s.input.Resolve(r.Context(), sess, req.Point, req.Geometry, opts)
	if err != nil {
		s.logger.Printf("input resolve: %v", err)
		http.Error(w, "input failed", http.StatusInternalServerError)
		return
	}

	switch res.Outcome {
	case input.OutcomeInvalidRow:
		writeJSONStatus(w, http.StatusBadRequest, inputResp{Outcome: res.Outcome, Error: "invalid row"})
	case input.OutcomeInvalidColumn:
		writeJSONStatus(w, http.StatusBadRequest, inputResp{Outcome: res.Outcome, Error: "invalid column"})
	case input.OutcomeMalformedGeometry:
		writeJSONStatus(w, http.StatusBadRequest, inputResp{Outcome: res.Outcome, Error: "malformed geometry"})
	default:
		writeJSON(w, resolvedResp(res))
	}
}

func resolvedResp(res input.Result) inputResp {
	resp := inputResp{Outcome: res.Outcome, Key: res.Key, Layout: res.Layout}
	if res.Counted {
		count := res.Count
		resp.Count = &count
	}
	if res.ValueShown {
		value := res.Value
		resp.Value = &value
	}
	return resp
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	sess, err := s.clientSession(w, r)
	if err != nil {
		http.Error(w, "session load failed", http.StatusInternalServerError)
		return
	}
	if err := s.input.Clear(r.Context(), sess, target); err != nil {
		http.Error(w, "session save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, bufferResp{OK: true})
}

func (s *Server) handleBackspace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	sess, err := s.clientSession(w, r)
	if err != nil {
		http.Error(w, "session load failed", http.StatusInternalServerError)
		return
	}
	res, err := s.input.Backspace(r.Context(), sess, target)
	if err != nil {
		http.Error(w, "session save failed", http.StatusInternalServerError)
		return
	}
	resp := bufferResp{OK: true}
	count := res.Count
	resp.Count = &count
	if res.ValueShown {
		value := res.Value
		resp.Value = &value
	}
	writeJSON(w, resp)
}

// decodeTarget parses the optional targetField of clear/backspace
// bodies. An empty body is fine; an unknown field name is not.
func decodeTarget(w http.ResponseWriter, r *http.Request) (*session.Field, bool) {
	var req bufferReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return nil, false
		}
	}
	if req.TargetField == "" {
		return nil, true
	}
	field, ok := session.ParseField(req.TargetField)
	if !ok {
		http.Error(w, "unknown target field", http.StatusBadRequest)
		return nil, false
	}
	return &field, true
}

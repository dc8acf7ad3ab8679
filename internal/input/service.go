// Package input orchestrates coordinate resolution against a session's
// stored layout and applies the resulting edit to its buffers.
package input

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
	"github.com/nirmal8344/ScramblerKey/internal/session"
)

type Outcome string

const (
	OutcomeResolved          Outcome = "resolved"
	OutcomeInvalidRow        Outcome = "invalid_row"
	OutcomeInvalidColumn     Outcome = "invalid_column"
	OutcomeMalformedGeometry Outcome = "malformed_geometry"
)

// Options carries the per-call knobs of one input event. Target, when
// set, overrides the session's active field for this edit only.
// Scramble and Uppercase apply to the next layout, generated only when
// the keystroke was alphanumeric.
type Options struct {
	Target    *session.Field
	Scramble  bool
	Uppercase bool
}

// Result is the structured outcome of one input event. Layout is set
// only when a new layout was issued. Counted marks that a buffer was
// touched and Count holds its new length. Value is disclosed only for
// the identifier buffer; the secret buffer's text never leaves the
// server.
type Result struct {
	Outcome    Outcome
	Key        string
	Layout     keyboard.Layout
	Count      int
	Counted    bool
	Value      string
	ValueShown bool
}

// Service resolves coordinates and mutates session buffers. One input
// call is one unit of work; the layout it returns is the layout the
// next call will be resolved against, so callers must serialize their
// input calls per session.
type Service struct {
	sessions session.Store
}

func NewService(sessions session.Store) *Service {
	return &Service{sessions: sessions}
}

// Resolve maps one pointer event to a key of the session's stored
// layout and applies the edit. Geometry misses report an outcome and
// leave the session untouched.
func (s *Service) Resolve(ctx context.Context, sess *session.Session, p keyboard.Point, g keyboard.Geometry, opts Options) (Result, error) {
	cell, err := keyboard.Resolve(p, g, keyboard.Keys)
	switch {
	case errors.Is(err, keyboard.ErrMalformedGeometry):
		return Result{Outcome: OutcomeMalformedGeometry}, nil
	case errors.Is(err, keyboard.ErrInvalidRow):
		return Result{Outcome: OutcomeInvalidRow}, nil
	case errors.Is(err, keyboard.ErrInvalidColumn):
		return Result{Outcome: OutcomeInvalidColumn}, nil
	case err != nil:
		return Result{}, err
	}

	// Class comes from the immutable grid, the glyph from the layout
	// the session was rendered with.
	slot := keyboard.Keys[cell.Row][cell.Col]
	glyph := sess.Layout.Glyph(cell.Row, cell.Col)
	field := s.targetField(sess, opts.Target)

	res := Result{Outcome: OutcomeResolved, Key: glyph}

	switch slot.Class {
	case keyboard.ClassDigit, keyboard.ClassLetter:
		buf := sess.Buffer(field) + glyph
		sess.SetBuffer(field, buf)
		// Alphanumeric entry is the only thing that costs a re-scramble.
		next := keyboard.Generate(opts.Scramble, opts.Uppercase)
		sess.Layout = next
		if err := s.sessions.Save(ctx, sess); err != nil {
			return Result{}, err
		}
		res.Layout = next
		s.reportBuffer(&res, field, buf)

	case keyboard.ClassFixed:
		switch slot.Label {
		case keyboard.KeyBackspace:
			buf := trimLastRune(sess.Buffer(field))
			sess.SetBuffer(field, buf)
			if err := s.sessions.Save(ctx, sess); err != nil {
				return Result{}, err
			}
			s.reportBuffer(&res, field, buf)

		case keyboard.KeySpace:
			buf := sess.Buffer(field) + " "
			sess.SetBuffer(field, buf)
			if err := s.sessions.Save(ctx, sess); err != nil {
				return Result{}, err
			}
			s.reportBuffer(&res, field, buf)

		default:
			// Shift and Caps only signal the caller, via the echoed
			// key, that the next layout request should flip case; the
			// remaining fixed keys are unbound. No state changes.
		}
	}

	return res, nil
}

// Backspace drops the last character of the target buffer; a no-op on
// an empty buffer. The layout is not regenerated.
func (s *Service) Backspace(ctx context.Context, sess *session.Session, target *session.Field) (Result, error) {
	field := s.targetField(sess, target)
	buf := trimLastRune(sess.Buffer(field))
	sess.SetBuffer(field, buf)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Result{}, err
	}
	res := Result{Outcome: OutcomeResolved, Key: keyboard.KeyBackspace}
	s.reportBuffer(&res, field, buf)
	return res, nil
}

// Clear empties the target buffer. Idempotent.
func (s *Service) Clear(ctx context.Context, sess *session.Session, target *session.Field) error {
	field := s.targetField(sess, target)
	sess.SetBuffer(field, "")
	return s.sessions.Save(ctx, sess)
}

func (s *Service) targetField(sess *session.Session, override *session.Field) session.Field {
	if override != nil {
		return *override
	}
	return sess.Active
}

func (s *Service) reportBuffer(res *Result, field session.Field, buf string) {
	res.Count = utf8.RuneCountInString(buf)
	res.Counted = true
	if field == session.FieldIdentifier {
		res.Value = buf
		res.ValueShown = true
	}
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

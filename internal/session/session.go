package session

import (
	"time"

	"github.com/nirmal8344/ScramblerKey/internal/keyboard"
)

// Field selects which of the two per-session buffers an edit targets.
type Field int

const (
	FieldIdentifier Field = iota
	FieldSecret
)

func (f Field) String() string {
	if f == FieldSecret {
		return "secret"
	}
	return "identifier"
}

// ParseField maps the wire names onto the enum.
func ParseField(s string) (Field, bool) {
	switch s {
	case "identifier":
		return FieldIdentifier, true
	case "secret":
		return FieldSecret, true
	default:
		return 0, false
	}
}

// Session holds the server-side state one keyboard client accumulates:
// the layout its coordinates must be resolved against, the two text
// buffers, the currently active field, and an expiry. Callers read a
// session, derive new state, and write the whole record back.
type Session struct {
	ID         string
	Layout     keyboard.Layout
	Identifier string
	Secret     string
	Active     Field
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (s *Session) Buffer(f Field) string {
	if f == FieldSecret {
		return s.Secret
	}
	return s.Identifier
}

func (s *Session) SetBuffer(f Field, v string) {
	if f == FieldSecret {
		s.Secret = v
	} else {
		s.Identifier = v
	}
}

// ClearBuffers empties both buffers. The session itself, its id and
// its layout all survive; only the typed text is dropped.
func (s *Session) ClearBuffers() {
	s.Identifier = ""
	s.Secret = ""
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

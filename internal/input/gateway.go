package input

import (
	"context"
	"errors"
	"fmt"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
	"github.com/nirmal8344/ScramblerKey/internal/session"
)

type AuthOutcome string

const (
	AuthCreated            AuthOutcome = "created"
	AuthAuthenticated      AuthOutcome = "authenticated"
	AuthInvalidCredentials AuthOutcome = "invalid_credentials"
	AuthIdentifierTaken    AuthOutcome = "identifier_taken"
	AuthMissingCredentials AuthOutcome = "missing_credentials"
)

// AuthResult carries the decision plus, on success, the user record the
// caller may issue a token for.
type AuthResult struct {
	Outcome AuthOutcome
	User    *auth.User
}

// Gateway consumes a session's two buffers at submit time to create or
// verify a user record.
type Gateway struct {
	users    auth.UserStore
	sessions session.Store
}

func NewGateway(users auth.UserStore, sessions session.Store) *Gateway {
	return &Gateway{users: users, sessions: sessions}
}

// Authenticate runs one signup or login attempt against the buffers.
// Login clears both buffers on every decision, including an unknown
// identifier, so a secret is never retried against a stale buffer and
// never lingers after an auth decision. Unknown identifier and wrong
// secret are indistinguishable to the caller.
func (g *Gateway) Authenticate(ctx context.Context, sess *session.Session, signup bool) (AuthResult, error) {
	identifier, secret := sess.Identifier, sess.Secret
	if identifier == "" || secret == "" {
		return AuthResult{Outcome: AuthMissingCredentials}, nil
	}

	if signup {
		return g.signup(ctx, sess, identifier, secret)
	}
	return g.login(ctx, sess, identifier, secret)
}

func (g *Gateway) signup(ctx context.Context, sess *session.Session, identifier, secret string) (AuthResult, error) {
	if _, err := g.users.FindByIdentifier(identifier); err == nil {
		// Buffers stay: no decision was made against the secret, and
		// the user typically retries with a different identifier.
		return AuthResult{Outcome: AuthIdentifierTaken}, nil
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashSecret(auth.DefaultArgon, secret)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash secret: %w", err)
	}
	u := &auth.User{Identifier: identifier, SecretHash: hash, Roles: []auth.Role{auth.RoleUser}}
	if err := g.users.Add(u); err != nil {
		// The store's uniqueness constraint wins over the pre-check.
		if errors.Is(err, auth.ErrIdentifierTaken) {
			return AuthResult{Outcome: AuthIdentifierTaken}, nil
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	if err := g.clearBuffers(ctx, sess); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Outcome: AuthCreated, User: u}, nil
}

func (g *Gateway) login(ctx context.Context, sess *session.Session, identifier, secret string) (AuthResult, error) {
	res := AuthResult{Outcome: AuthInvalidCredentials}

	u, err := g.users.FindByIdentifier(identifier)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		// Reported identically to a digest mismatch.
	case err != nil:
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	default:
		ok, verr := auth.VerifySecret(secret, u.SecretHash)
		if verr == nil && ok {
			res = AuthResult{Outcome: AuthAuthenticated, User: u}
		}
	}

	if err := g.clearBuffers(ctx, sess); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

func (g *Gateway) clearBuffers(ctx context.Context, sess *session.Session) error {
	sess.ClearBuffers()
	if err := g.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

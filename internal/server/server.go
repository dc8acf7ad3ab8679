package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
	"github.com/nirmal8344/ScramblerKey/internal/crypto"
	"github.com/nirmal8344/ScramblerKey/internal/input"
	"github.com/nirmal8344/ScramblerKey/internal/session"
)

type Server struct {
	cfg Config

	mux      *http.ServeMux
	logger   *log.Logger
	signer   *auth.JWTSigner
	users    auth.UserStore
	sessions session.Store
	input    *input.Service
	gateway  *input.Gateway

	rlAuthIP      *multiLimiter
	rlAuthSession *multiLimiter
}

func New(ctx context.Context, cfg Config) (*Server, error) {
	cfg.setDefaults()

	var (
		users    auth.UserStore
		sessions session.Store
	)
	logger := log.New(os.Stdout, "[scramblerd] ", log.LstdFlags|log.Lshortfile)

	if cfg.MongoURI == "" {
		logger.Printf("no mongo uri configured; using in-memory stores")
		users = auth.NewMemoryUserStore()
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	} else {
		sealer, err := newSealer(cfg.SealKey)
		if err != nil {
			return nil, err
		}
		us, err := auth.NewMongoUserStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.UsersCollection)
		if err != nil {
			return nil, fmt.Errorf("mongo users: %w", err)
		}
		ss, err := session.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.SessionsCollection, cfg.SessionTTL, sealer)
		if err != nil {
			return nil, fmt.Errorf("mongo sessions: %w", err)
		}
		users, sessions = us, ss
	}

	priv, _, err := auth.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	signer := auth.NewJWTSigner(priv, cfg.JWTIssuer, cfg.TokenTTL)

	s := newServer(cfg, users, sessions, signer, logger)
	if err := s.ensureSeedUsers(); err != nil {
		return nil, err
	}
	return s, nil
}

// newServer wires handlers onto injected stores; tests use it directly
// with the in-memory implementations.
func newServer(cfg Config, users auth.UserStore, sessions session.Store, signer *auth.JWTSigner, logger *log.Logger) *Server {
	cfg.setDefaults()

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		logger:   logger,
		signer:   signer,
		users:    users,
		sessions: sessions,
		input:    input.NewService(sessions),
		gateway:  input.NewGateway(users, sessions),
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlAuthIP = newMultiLimiter(rate.Limit(perWindow(10, time.Minute)), 10, time.Hour)
	s.rlAuthSession = newMultiLimiter(rate.Limit(perWindow(5, time.Minute)), 5, time.Hour)

	s.routes()
	return s
}

func newSealer(sealKey string) (*crypto.Sealer, error) {
	var master []byte
	if sealKey == "" {
		// Ephemeral key: sealed buffers from a previous run become
		// unreadable after restart, which only shortens those
		// sessions' lives.
		master = make([]byte, 32)
		if _, err := rand.Read(master); err != nil {
			return nil, err
		}
	} else {
		b, err := hex.DecodeString(strings.TrimSpace(sealKey))
		if err != nil {
			return nil, fmt.Errorf("seal key: %w", err)
		}
		if len(b) != 32 {
			return nil, errors.New("seal key must be 32 bytes of hex")
		}
		master = b
	}
	defer crypto.Zero(master)

	key, err := crypto.DeriveKey(master, "session-buffer-v1")
	if err != nil {
		return nil, err
	}
	return crypto.NewSealer(key)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
}

func (s *Server) ensureSeedUsers() error {
	for _, seed := range s.cfg.SeedUsers {
		if strings.TrimSpace(seed.Identifier) == "" || strings.TrimSpace(seed.Secret) == "" {
			continue
		}
		if _, err := s.users.FindByIdentifier(seed.Identifier); err == nil {
			continue
		}
		hash, err := auth.HashSecret(auth.DefaultArgon, seed.Secret)
		if err != nil {
			return err
		}
		roles := seed.Roles
		if len(roles) == 0 {
			roles = []auth.Role{auth.RoleUser}
		}
		if err := s.users.Add(&auth.User{Identifier: seed.Identifier, SecretHash: hash, Roles: roles}); err != nil {
			return err
		}
		s.logger.Printf("seeded user %s", seed.Identifier)
	}
	return nil
}

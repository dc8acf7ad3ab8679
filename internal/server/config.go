package server

import (
	"time"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
)

type SeedUser struct {
	Identifier string
	Secret     string
	Roles      []auth.Role
}

type Config struct {
	ListenAddr         string
	MongoURI           string
	MongoDB            string
	UsersCollection    string
	SessionsCollection string
	SessionTTL         time.Duration
	JWTIssuer          string
	TokenTTL           time.Duration
	SealKey            string // hex-encoded 32-byte master key for buffer sealing
	SeedUsers          []SeedUser
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.MongoDB == "" {
		c.MongoDB = "scramblerkey"
	}
	if c.UsersCollection == "" {
		c.UsersCollection = "users"
	}
	if c.SessionsCollection == "" {
		c.SessionsCollection = "sessions"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Hour
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "scramblerkey-backend"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
}

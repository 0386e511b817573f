// Package participanttoken mints participant tokens for the trap host and
// generates token secrets.
package participanttoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	entrypoint "github.com/louisbranch/trapmacros/internal/platform/cmd"
	"github.com/louisbranch/trapmacros/internal/services/traps/session"
)

// Config holds configuration for token minting.
type Config struct {
	Secret    string        `env:"TRAPMACROS_TOKEN_SECRET"`
	UserID    string        `env:"TRAPMACROS_TOKEN_USER"`
	Name      string        `env:"TRAPMACROS_TOKEN_NAME"`
	Role      string        `env:"TRAPMACROS_TOKEN_ROLE" envDefault:"player"`
	TTL       time.Duration `env:"TRAPMACROS_TOKEN_TTL"  envDefault:"12h"`
	NewSecret bool
	Bytes     int
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "token signing secret")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "participant user id")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "participant display name")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "participant role: gm or player")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	fs.BoolVar(&cfg.NewSecret, "new-secret", false, "print a fresh signing secret instead of a token")
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "random bytes for -new-secret (default: 32)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes either a new secret or a signed participant token to out.
// reader supplies randomness for -new-secret and defaults to crypto/rand.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.NewSecret {
		return writeSecret(cfg.Bytes, out, reader)
	}

	auth, err := session.NewAuthenticator([]byte(cfg.Secret))
	if err != nil {
		return err
	}
	token, err := auth.Issue(session.Participant{
		UserID: cfg.UserID,
		Name:   cfg.Name,
		Role:   session.Role(cfg.Role),
	}, cfg.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func writeSecret(n int, out io.Writer, reader io.Reader) error {
	if n < 32 {
		return errors.New("secret must be at least 32 bytes")
	}
	if reader == nil {
		reader = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "TRAPMACROS_TOKEN_SECRET=%s\n", hex.EncodeToString(buf))
	return err
}

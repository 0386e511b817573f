package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
)

// Issuer is the iss claim on participant tokens.
const Issuer = "trapmacros"

const minSecretBytes = 32

// Role is a participant's permission level.
type Role string

const (
	RoleGM     Role = "gm"
	RolePlayer Role = "player"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGM || r == RolePlayer
}

// Participant is an authenticated session member.
type Participant struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// IsGM reports whether the participant arbitrates the session.
func (p Participant) IsGM() bool {
	return p.Role == RoleGM
}

// Claims are the JWT claims of a participant token.
type Claims struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier authenticates participant tokens.
type Verifier interface {
	Verify(token string) (Participant, error)
}

// Authenticator issues and verifies HS256 participant tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator requires a secret of at least 32 bytes.
func NewAuthenticator(secret []byte) (*Authenticator, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("participant token secret must be at least %d bytes", minSecretBytes)
	}
	return &Authenticator{secret: append([]byte(nil), secret...), now: time.Now}, nil
}

// Issue signs a token for p valid for ttl.
func (a *Authenticator) Issue(p Participant, ttl time.Duration) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("participant user id is required")
	}
	if !p.Role.Valid() {
		return "", fmt.Errorf("unknown participant role %q", p.Role)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := a.now()
	claims := Claims{
		Role: p.Role,
		Name: p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign participant token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its participant. Every failure is a
// PARTICIPANT_UNAUTHENTICATED error.
func (a *Authenticator) Verify(token string) (Participant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Participant{}, unauthenticated("missing participant token", nil)
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Participant{}, unauthenticated("invalid participant token", err)
	}
	if strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return Participant{}, unauthenticated("participant token lacks subject or role", nil)
	}
	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = claims.Subject
	}
	return Participant{UserID: claims.Subject, Name: name, Role: claims.Role}, nil
}

func unauthenticated(message string, cause error) error {
	if cause == nil {
		return apperrors.New(apperrors.CodeParticipantUnauthenticated, message)
	}
	return apperrors.Wrap(apperrors.CodeParticipantUnauthenticated, message, cause)
}

package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/trapmacros/internal/platform/errors"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndVerify(t *testing.T) {
	auth, err := NewAuthenticator(testSecret)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	token, err := auth.Issue(Participant{UserID: "u-1", Name: "Dana", Role: RoleGM}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != (Participant{UserID: "u-1", Name: "Dana", Role: RoleGM}) || !got.IsGM() {
		t.Fatalf("participant = %+v", got)
	}
}

func TestVerifyDefaultsNameToSubject(t *testing.T) {
	auth, _ := NewAuthenticator(testSecret)
	token, err := auth.Issue(Participant{UserID: "u-2", Role: RolePlayer}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := auth.Verify(token)
	if err != nil || got.Name != "u-2" {
		t.Fatalf("Verify = %+v, %v", got, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	auth, _ := NewAuthenticator(testSecret)
	other, _ := NewAuthenticator([]byte(strings.Repeat("x", 32)))

	expired := func() string {
		past, _ := NewAuthenticator(testSecret)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := past.Issue(Participant{UserID: "u", Role: RolePlayer}, time.Hour)
		return token
	}()
	foreign, _ := other.Issue(Participant{UserID: "u", Role: RolePlayer}, time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleGM, RegisteredClaims: jwt.RegisteredClaims{
		Issuer: Issuer, Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "dm", RegisteredClaims: jwt.RegisteredClaims{
		Issuer: Issuer, Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString(testSecret)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleGM, RegisteredClaims: jwt.RegisteredClaims{
		Issuer: Issuer, Subject: "u",
	}}).SignedString(testSecret)

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired,
		"wrong key": foreign,
		"alg none":  unsigned,
		"bad role":  badRole,
		"no expiry": noExpiry,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Verify(token)
			if apperrors.CodeOf(err) != apperrors.CodeParticipantUnauthenticated {
				t.Fatalf("Verify err = %v, want PARTICIPANT_UNAUTHENTICATED", err)
			}
		})
	}
}

func TestNewAuthenticatorRejectsShortSecret(t *testing.T) {
	if _, err := NewAuthenticator([]byte("short")); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueValidates(t *testing.T) {
	auth, _ := NewAuthenticator(testSecret)
	cases := []struct {
		p   Participant
		ttl time.Duration
	}{
		{Participant{Role: RoleGM}, time.Hour},
		{Participant{UserID: "u", Role: "owner"}, time.Hour},
		{Participant{UserID: "u", Role: RolePlayer}, 0},
	}
	for _, c := range cases {
		if _, err := auth.Issue(c.p, c.ttl); err == nil {
			t.Fatalf("Issue(%+v, %v) succeeded", c.p, c.ttl)
		}
	}
}

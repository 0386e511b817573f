package participanttoken

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/trapmacros/internal/services/traps/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("TRAPMACROS_TOKEN_SECRET", "")
	fs := flag.NewFlagSet("participanttoken", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Role != "player" {
		t.Fatalf("expected default role player, got %q", cfg.Role)
	}
	if cfg.TTL != 12*time.Hour {
		t.Fatalf("expected default ttl 12h, got %s", cfg.TTL)
	}
	if cfg.Bytes != 32 {
		t.Fatalf("expected default bytes 32, got %d", cfg.Bytes)
	}
}

func TestParseConfigOverride(t *testing.T) {
	t.Setenv("TRAPMACROS_TOKEN_SECRET", testSecret)
	fs := flag.NewFlagSet("participanttoken", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-user", "gm-1", "-role", "gm", "-ttl", "1h"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Secret != testSecret {
		t.Fatal("expected secret from env")
	}
	if cfg.UserID != "gm-1" || cfg.Role != "gm" || cfg.TTL != time.Hour {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestRunIssuesVerifiableToken(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := Config{Secret: testSecret, UserID: "p-1", Name: "Aria", Role: "player", TTL: time.Hour}
	if err := Run(cfg, buf, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	auth, err := session.NewAuthenticator([]byte(testSecret))
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	p, err := auth.Verify(strings.TrimSpace(buf.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != "p-1" || p.Name != "Aria" || p.Role != session.RolePlayer {
		t.Fatalf("unexpected participant: %+v", p)
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "short secret", cfg: Config{Secret: "short", UserID: "p-1", Role: "player", TTL: time.Hour}},
		{name: "missing user", cfg: Config{Secret: testSecret, Role: "player", TTL: time.Hour}},
		{name: "unknown role", cfg: Config{Secret: testSecret, UserID: "p-1", Role: "admin", TTL: time.Hour}},
		{name: "zero ttl", cfg: Config{Secret: testSecret, UserID: "p-1", Role: "gm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Run(tt.cfg, &bytes.Buffer{}, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunWritesSecretHex(t *testing.T) {
	buf := &bytes.Buffer{}
	reader := bytes.NewReader(bytes.Repeat([]byte{0xab}, 32))
	if err := Run(Config{NewSecret: true, Bytes: 32}, buf, reader); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "TRAPMACROS_TOKEN_SECRET=" + strings.Repeat("ab", 32)
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Fatalf("expected env output, got %q", got)
	}
}

func TestRunSecretRejectsShortLength(t *testing.T) {
	if err := Run(Config{NewSecret: true, Bytes: 16}, &bytes.Buffer{}, nil); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestRunNilOutput(t *testing.T) {
	if err := Run(Config{NewSecret: true, Bytes: 32}, nil, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, fmt.Errorf("read error") }

func TestRunReaderError(t *testing.T) {
	if err := Run(Config{NewSecret: true, Bytes: 32}, &bytes.Buffer{}, errReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

// Package chat carries trap announcements to the shared session log.
package chat

import (
	"context"

	"github.com/louisbranch/trapmacros/internal/core/dice"
)

//go:generate go tool mockgen -destination=./mocks/log_mock.go -package=mocks . Log

// WhisperGM addresses a whisper to every game master.
const WhisperGM = "gm"

// Kind classifies a message for clients.
type Kind string

const (
	KindAnnouncement Kind = "announcement"
	KindRoll         Kind = "roll"
	KindSave         Kind = "save"
	KindFlavor       Kind = "flavor"
	KindNotice       Kind = "notice"
)

// Message is one entry in the session log.
type Message struct {
	Title   string        `json:"title,omitempty"`
	Content string        `json:"content"`
	Speaker string        `json:"speaker"`
	Whisper []string      `json:"whisper,omitempty"`
	Kind    Kind          `json:"kind"`
	Flavor  string        `json:"flavor,omitempty"`
	Roll    *dice.Outcome `json:"roll,omitempty"`
}

// Whispered reports whether the message is restricted to some recipients.
func (m Message) Whispered() bool {
	return len(m.Whisper) > 0
}

// Log receives messages for the session.
type Log interface {
	Post(ctx context.Context, msg Message) error
}

package chat

import (
	"strings"
	"testing"
)

func TestNarratorAnnounce(t *testing.T) {
	n := NewNarrator("en-US")
	msg := n.Announce("Ice Pit", "A hidden pit.", "Aria")
	if msg.Title != "Ice Pit Triggered!" {
		t.Fatalf("title = %q", msg.Title)
	}
	if msg.Content != "A hidden pit.\nAria has triggered a trap!" {
		t.Fatalf("content = %q", msg.Content)
	}
	if msg.Speaker != "Ice Pit" || msg.Kind != KindAnnouncement {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestNarratorSaveOutcome(t *testing.T) {
	n := NewNarrator("en-US")
	msg := n.SaveOutcome("Ice Pit", "Aria", 15, "dex", 20, true, 3)
	want := "Aria must make a DC 15 DEX saving throw.\nRoll: 20 (Success)\nAria takes 3 damage."
	if msg.Content != want {
		t.Fatalf("content = %q, want %q", msg.Content, want)
	}
	fail := n.SaveOutcome("Ice Pit", "Aria", 15, "dex", 4, false, 7)
	if !strings.Contains(fail.Content, "(Failure)") {
		t.Fatalf("content = %q", fail.Content)
	}
}

func TestNarratorLocales(t *testing.T) {
	if got := NewNarrator("xx-XX").Locale(); got != "en-US" {
		t.Fatalf("unknown locale resolved to %q", got)
	}
	pt := NewNarrator("pt-BR")
	if got := pt.Text("traps.result.already_triggered", "Fosso"); got != "Fosso já foi ativada" {
		t.Fatalf("pt-BR text = %q", got)
	}
	if got := pt.Text("traps.ice_pit.cue"); got != "CRACK!" {
		t.Fatalf("pt-BR fallback = %q", got)
	}
}

func TestNarratorTexts(t *testing.T) {
	n := NewNarrator("")
	tests := []struct {
		got  string
		want string
	}{
		{n.Text("traps.result.not_found", "ghost"), "Trap with ID ghost not found"},
		{n.Text("traps.result.triggered", "Ice Pit", "Aria"), "Ice Pit triggered successfully on Aria"},
		{n.DamageFlavor("cold", "Ice Pit"), "cold damage from Ice Pit"},
		{n.Text("traps.pressure_dart.reset"), "*click* The pressure dart trap resets."},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestMessageWhispered(t *testing.T) {
	if (Message{}).Whispered() {
		t.Fatal("empty whisper list is public")
	}
	if !(Message{Whisper: []string{WhisperGM}}).Whispered() {
		t.Fatal("expected whispered message")
	}
}

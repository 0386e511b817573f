package chat

import (
	"strings"

	i18ncatalog "github.com/louisbranch/trapmacros/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Narrator renders trap text from the embedded message catalog.
type Narrator struct {
	locale  string
	printer *message.Printer
}

// NewNarrator returns a narrator for locale, falling back to the base locale
// when the tag is unknown or malformed.
func NewNarrator(locale string) *Narrator {
	bundle := i18ncatalog.Default()
	locale = strings.TrimSpace(locale)
	if !bundle.HasLocale(locale) {
		locale = i18ncatalog.BaseLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(i18ncatalog.BaseLocale)
	}
	return &Narrator{locale: locale, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved locale.
func (n *Narrator) Locale() string {
	return n.locale
}

// Text renders the catalog message key with args.
func (n *Narrator) Text(key string, args ...any) string {
	return n.printer.Sprintf(key, args...)
}

// Announce is the first message of a trigger.
func (n *Narrator) Announce(trapName, description, actorName string) Message {
	return Message{
		Title:   n.Text("traps.announce.title", trapName),
		Content: n.Text("traps.announce.body", description, actorName),
		Speaker: trapName,
		Kind:    KindAnnouncement,
	}
}

// SaveOutcome describes the saving throw for the log.
func (n *Narrator) SaveOutcome(trapName, actorName string, dc int, ability string, roll int, success bool, damage int) Message {
	verdict := n.Text("traps.save.failure")
	if success {
		verdict = n.Text("traps.save.success")
	}
	return Message{
		Title:   trapName,
		Content: n.Text("traps.save.body", actorName, dc, strings.ToUpper(ability), roll, verdict, damage),
		Speaker: trapName,
		Kind:    KindSave,
	}
}

// DamageFlavor labels the damage roll.
func (n *Narrator) DamageFlavor(damageType, trapName string) string {
	return n.Text("traps.damage.flavor", damageType, trapName)
}

// Package catalog loads the embedded locales/<locale>/<namespace>.yaml
// message catalogs and registers them with golang.org/x/text/message.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaseLocale is the source locale every other catalog falls back to.
const BaseLocale = "en-US"

const catalogGlob = "locales/*/*.yaml"

//go:embed locales/*/*.yaml
var embedded embed.FS

var defaultBundle = mustLoadEmbedded()

type catalogFile struct {
	Locale    string
	Namespace string
	Messages  map[string]string
}

// Bundle holds messages by locale, then namespace, then key. Keys are unique
// within a locale across namespaces, since x/text has a single key space.
type Bundle struct {
	locales map[string]map[string]map[string]string
}

// Default returns the embedded bundle, already registered with x/text.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded parses the embedded catalogs without registering them.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS parses every catalog under locales/ in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, catalogGlob)
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		file, err := parseCatalogFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s has no catalogs", BaseLocale)
	}
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	dir, name := path.Split(p)
	if want := path.Base(dir); file.Locale != want {
		return fmt.Errorf("locale %q does not match directory %q", file.Locale, want)
	}
	if want := strings.TrimSuffix(name, path.Ext(name)); file.Namespace != want {
		return fmt.Errorf("namespace %q does not match file name %q", file.Namespace, want)
	}

	namespaces := b.locales[file.Locale]
	if namespaces == nil {
		namespaces = map[string]map[string]string{}
		b.locales[file.Locale] = namespaces
	}
	if _, dup := namespaces[file.Namespace]; dup {
		return fmt.Errorf("namespace %q defined twice", file.Namespace)
	}
	for key := range file.Messages {
		for ns, messages := range namespaces {
			if _, dup := messages[key]; dup {
				return fmt.Errorf("key %q already defined in namespace %q", key, ns)
			}
		}
	}
	namespaces[file.Namespace] = file.Messages
	return nil
}

// Register installs every locale with x/text. Missing keys use the base
// text; pt-BR is also registered as pt.
func (b *Bundle) Register() error {
	base := b.merged(BaseLocale)
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if lang, conf := tag.Base(); conf != language.No {
			if short := language.Make(lang.String()); short != tag {
				tags = append(tags, short)
			}
		}

		messages := b.merged(locale)
		for key, text := range base {
			if _, ok := messages[key]; !ok {
				messages[key] = text
			}
		}
		for key, text := range messages {
			for _, t := range tags {
				if err := message.SetString(t, key, text); err != nil {
					return fmt.Errorf("register %s %q: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether locale has any catalog.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales lists loaded locales in order.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// NamespaceMessagesWithFallback returns a copy of namespace for locale, or
// for the base locale when locale has none, along with the locale used.
func (b *Bundle) NamespaceMessagesWithFallback(locale, namespace string) (string, map[string]string) {
	locale = strings.TrimSpace(locale)
	namespace = strings.TrimSpace(namespace)
	if messages := b.locales[locale][namespace]; len(messages) > 0 {
		return locale, clone(messages)
	}
	return BaseLocale, clone(b.locales[BaseLocale][namespace])
}

func (b *Bundle) merged(locale string) map[string]string {
	out := map[string]string{}
	for _, messages := range b.locales[locale] {
		for key, text := range messages {
			out[key] = text
		}
	}
	return out
}

func clone(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}

// parseCatalogFile reads the flat catalog layout:
//
//	locale: "en-US"
//	namespace: "traps"
//	messages:
//	  "key": "value"
func parseCatalogFile(data []byte) (catalogFile, error) {
	file := catalogFile{Messages: map[string]string{}}
	inMessages := false
	for n, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "messages:" {
			inMessages = true
			continue
		}
		if !inMessages {
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				return catalogFile{}, fmt.Errorf("line %d: expected header", n+1)
			}
			unquoted, err := strconv.Unquote(strings.TrimSpace(value))
			if err != nil {
				return catalogFile{}, fmt.Errorf("line %d: %s: %w", n+1, name, err)
			}
			switch strings.TrimSpace(name) {
			case "locale":
				file.Locale = unquoted
			case "namespace":
				file.Namespace = unquoted
			default:
				return catalogFile{}, fmt.Errorf("line %d: unknown header %q", n+1, name)
			}
			continue
		}
		key, value, err := parseEntry(line)
		if err != nil {
			return catalogFile{}, fmt.Errorf("line %d: %w", n+1, err)
		}
		file.Messages[key] = value
	}

	switch {
	case file.Locale == "":
		return catalogFile{}, errors.New("missing locale")
	case file.Namespace == "":
		return catalogFile{}, errors.New("missing namespace")
	case len(file.Messages) == 0:
		return catalogFile{}, errors.New("missing messages")
	}
	return file, nil
}

// parseEntry splits `"key": "value"`, honoring escaped quotes in the key.
func parseEntry(line string) (string, string, error) {
	if !strings.HasPrefix(line, `"`) {
		return "", "", errors.New("expected quoted key")
	}
	end := -1
	for i := 1; i < len(line) && end < 0; i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			end = i
		}
	}
	if end < 0 {
		return "", "", errors.New("unterminated key")
	}
	key, err := strconv.Unquote(line[:end+1])
	if err != nil {
		return "", "", fmt.Errorf("key: %w", err)
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(line[end+1:]), ":")
	if !ok {
		return "", "", errors.New("missing ':' separator")
	}
	value, err := strconv.Unquote(strings.TrimSpace(rest))
	if err != nil {
		return "", "", fmt.Errorf("value: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", errors.New("blank key")
	}
	return key, value, nil
}

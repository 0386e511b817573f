// Package i18n renders participant-facing error messages from the "errors"
// catalog namespace.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/trapmacros/internal/platform/i18n/catalog"
)

// Code mirrors errors.Code; the errors package imports this one.
type Code = string

const namespace = "errors"

// Catalog holds error templates for one locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

// cache holds one *Catalog per resolved locale.
var cache sync.Map

// GetCatalog returns the catalog for locale. Unknown and blank locales
// resolve to the base locale; codes missing from a translation use base text.
func GetCatalog(locale string) *Catalog {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = i18ncatalog.BaseLocale
	}
	if c, ok := cache.Load(locale); ok {
		return c.(*Catalog)
	}

	bundle := i18ncatalog.Default()
	resolved, messages := bundle.NamespaceMessagesWithFallback(locale, namespace)
	if c, ok := cache.Load(resolved); ok {
		return c.(*Catalog)
	}
	if resolved != i18ncatalog.BaseLocale {
		_, base := bundle.NamespaceMessagesWithFallback(i18ncatalog.BaseLocale, namespace)
		for code, text := range base {
			if _, ok := messages[code]; !ok {
				messages[code] = text
			}
		}
	}
	c, _ := cache.LoadOrStore(resolved, NewCatalog(resolved, messages))
	return c.(*Catalog)
}

// NewCatalog copies messages into a catalog for locale.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	c := &Catalog{locale: locale, messages: make(map[Code]string, len(messages))}
	for code, text := range messages {
		c.messages[code] = text
	}
	return c
}

// Locale returns the catalog locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the template for code with metadata. A missing template
// yields the code; a broken one yields the raw template.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	text, ok := c.messages[code]
	if !ok {
		return code
	}
	if !strings.Contains(text, "{{") {
		return text
	}
	tmpl, err := template.New(code).Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return text
	}
	return buf.String()
}

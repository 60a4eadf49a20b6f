// Package i18n renders localized user-facing messages for domain error codes.
//
// Messages live in embedded YAML files (one per locale) and are text/template
// strings fed with the error metadata. Locale resolution goes through an
// x/text language matcher so regional variants ("pt-PT", "en-GB") fall back to
// the closest supported catalog.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

type registry struct {
	tags     []language.Tag
	matcher  language.Matcher
	builder  *catalog.Builder
	catalogs map[string]*Catalog
}

// Languages returns the x/text catalog languages with registered messages.
func Languages() []language.Tag {
	return defaultRegistry.builder.Languages()
}

var (
	catalogsMu sync.RWMutex
	// catalogs holds override and runtime-built catalogs by locale.
	catalogs        = map[string]*Catalog{}
	defaultRegistry = mustLoadEmbedded()
)

// GetCatalog returns the catalog best matching locale.
// Falls back to en-US when nothing matches.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}
	if c, ok := lookupCatalog(requested); ok {
		return c
	}
	return defaultRegistry.resolve(requested)
}

// Locales returns the embedded locale identifiers in sorted order.
func Locales() []string {
	out := make([]string, 0, len(defaultRegistry.catalogs))
	for locale := range defaultRegistry.catalogs {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found, and to the raw
// template when it fails to parse or execute.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a catalog that takes precedence over the embedded
// ones for an exact locale match. Intended for tests and startup overrides.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{
		locale:   locale,
		messages: cloned,
	}
}

// LoadFromFS parses every locales/*.yaml file in fsys. The base locale must
// be present.
func LoadFromFS(fsys fs.FS) (map[string]map[Code]string, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	out := make(map[string]map[Code]string, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			return nil, fmt.Errorf("%s: locale is required", p)
		}
		if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); want != locale {
			return nil, fmt.Errorf("%s: locale %q must match file name %q", p, locale, want)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("%s: messages are required", p)
		}
		if _, exists := out[locale]; exists {
			return nil, fmt.Errorf("%s: locale %q defined twice", p, locale)
		}
		out[locale] = file.Messages
	}
	if _, ok := out[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}
	return out, nil
}

func newRegistry(locales map[string]map[Code]string) (*registry, error) {
	reg := &registry{
		builder:  catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		catalogs: make(map[string]*Catalog, len(locales)),
	}
	names := make([]string, 0, len(locales))
	for locale := range locales {
		names = append(names, locale)
	}
	sort.Strings(names)
	// The base locale goes first so the matcher falls back to it.
	sort.SliceStable(names, func(i, j int) bool { return names[i] == BaseLocale })

	for _, locale := range names {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		messages := locales[locale]
		for key, value := range messages {
			if err := reg.builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
		reg.tags = append(reg.tags, tag)
		reg.catalogs[locale] = NewCatalog(locale, messages)
	}
	reg.matcher = language.NewMatcher(reg.tags)
	return reg, nil
}

func (r *registry) resolve(requested string) *Catalog {
	_, index, confidence := r.matcher.Match(language.Make(requested))
	if confidence == language.No || index < 0 || index >= len(r.tags) {
		return r.catalogs[BaseLocale]
	}
	if c, ok := r.catalogs[r.tags[index].String()]; ok {
		return c
	}
	return r.catalogs[BaseLocale]
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	cat, ok := catalogs[locale]
	return cat, ok
}

func mustLoadEmbedded() *registry {
	locales, err := LoadFromFS(embeddedLocales)
	if err != nil {
		panic(err)
	}
	reg, err := newRegistry(locales)
	if err != nil {
		panic(err)
	}
	return reg
}

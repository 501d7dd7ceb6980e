package service

import (
	"golang.org/x/text/language"
)

// Locales negotiates the UI locale from an Accept-Language header.
type Locales struct {
	def     language.Tag
	tags    []language.Tag
	matcher language.Matcher
}

// NewLocales builds a negotiator. The default locale is always supported and
// wins ties; supported entries that do not parse are skipped.
func NewLocales(def string, supported []string) (*Locales, error) {
	d, err := language.Parse(def)
	if err != nil {
		return nil, err
	}
	tags := []language.Tag{d}
	for _, s := range supported {
		t, err := language.Parse(s)
		if err != nil || t == d {
			continue
		}
		tags = append(tags, t)
	}
	return &Locales{def: d, tags: tags, matcher: language.NewMatcher(tags)}, nil
}

// Default returns the configured default locale.
func (l *Locales) Default() string { return l.def.String() }

// Supported returns every supported locale, default first.
func (l *Locales) Supported() []string {
	out := make([]string, len(l.tags))
	for i, t := range l.tags {
		out[i] = t.String()
	}
	return out
}

// Negotiate picks the best supported locale for an Accept-Language value.
// An empty or unparseable header yields the default.
func (l *Locales) Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return l.Default()
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return l.Default()
	}
	_, idx, conf := l.matcher.Match(prefs...)
	if conf == language.No {
		return l.Default()
	}
	return l.tags[idx].String()
}

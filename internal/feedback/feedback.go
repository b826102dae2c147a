// Package feedback composes the short result text shown to a student after an attempt.
package feedback

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyCorrect   = "Correct! +%d XP"
	keyIncorrect = "Not quite right. +%d XP for the effort"
	keyMastered  = "You have mastered %s!"
	keyUnlocked  = "New topics unlocked: %s"
)

var supported = []language.Tag{language.English, language.Malay}

var translations = map[language.Tag]map[string]string{
	language.English: {
		keyCorrect:   keyCorrect,
		keyIncorrect: keyIncorrect,
		keyMastered:  keyMastered,
		keyUnlocked:  keyUnlocked,
	},
	language.Malay: {
		keyCorrect:   "Betul! +%d XP",
		keyIncorrect: "Belum tepat. +%d XP untuk usaha anda",
		keyMastered:  "Tahniah, anda telah menguasai %s!",
		keyUnlocked:  "Topik baharu dibuka: %s",
	},
}

// Outcome is what happened on one attempt.
type Outcome struct {
	IsCorrect    bool
	XPEarned     int
	Mastered     bool
	SubtopicName string
	Unlocked     []string // subtopic names
}

// Composer renders Outcomes in the supported languages.
type Composer struct {
	catalog  *catalog.Builder
	matcher  language.Matcher
	fallback language.Tag
}

// NewComposer returns a composer that falls back to fallback for unsupported
// languages. An unparsable or unsupported fallback means English.
func NewComposer(fallback string) *Composer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			// Keys and tags are static; SetString only fails on malformed input.
			_ = b.SetString(tag, key, msg)
		}
	}

	c := &Composer{
		catalog: b,
		matcher: language.NewMatcher(supported),
	}
	c.fallback = c.match(fallback, language.English)
	return c
}

// Languages returns the supported language tags.
func Languages() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = t.String()
	}
	return out
}

// Compose renders o in lang, or in the fallback language when lang is empty
// or unsupported.
func (c *Composer) Compose(lang string, o Outcome) string {
	p := message.NewPrinter(c.match(lang, c.fallback), message.Catalog(c.catalog))

	var parts []string
	if o.IsCorrect {
		parts = append(parts, p.Sprintf(keyCorrect, o.XPEarned))
	} else {
		parts = append(parts, p.Sprintf(keyIncorrect, o.XPEarned))
	}
	if o.Mastered {
		parts = append(parts, p.Sprintf(keyMastered, o.SubtopicName))
	}
	if len(o.Unlocked) > 0 {
		parts = append(parts, p.Sprintf(keyUnlocked, strings.Join(o.Unlocked, ", ")))
	}
	return strings.Join(parts, " ")
}

func (c *Composer) match(lang string, fallback language.Tag) language.Tag {
	if lang == "" {
		return fallback
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fallback
	}
	_, i, conf := c.matcher.Match(tag)
	if conf == language.No {
		return fallback
	}
	return supported[i]
}

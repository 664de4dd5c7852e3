package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

const (
	MaxNameLength = 15
	MaxBioLength  = 200
)

// ValidationError is returned for bad input before anything touches the database.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

var deniedWords = []string{
	"fuck", "shit", "ass", "bitch", "bastard", "dick", "cock",
	"piss", "cunt", "slut", "whore", "twat", "wank", "crap", "damn",
}

// Substitutions a player might use to dodge the filter.
var leetClasses = map[rune]string{
	'a': "a@4*",
	'b': "b8",
	'c': "c(k",
	'e': "e3*",
	'g': "g9",
	'i': "i1!|*",
	'l': "l1|",
	'o': "o0*",
	's': "s5$",
	't': "t7+",
	'u': "uv*",
}

var profanityPattern = buildProfanityPattern(deniedWords)

func buildProfanityPattern(words []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(words))
	for _, w := range words {
		var b strings.Builder
		for _, r := range w {
			if class, ok := leetClasses[r]; ok {
				b.WriteString("[" + regexp.QuoteMeta(class) + "]+")
			} else {
				b.WriteString(regexp.QuoteMeta(string(r)) + "+")
			}
		}
		p := b.String()
		// The bare branch also catches words embedded in longer ones ("grass").
		alternatives = append(alternatives, `\b`+p+`\b|`+p)
	}
	return regexp.MustCompile("(?:" + strings.Join(alternatives, "|") + ")")
}

var folder = cases.Fold()

func normalizeText(text string) string {
	return folder.String(unidecode.Unidecode(text))
}

// ContainsProfanity reports whether text contains a denied word, case-insensitively
// and through common leetspeak spellings.
func ContainsProfanity(text string) bool {
	if text == "" {
		return false
	}
	return profanityPattern.MatchString(normalizeText(text))
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return &ValidationError{Field: "username", Reason: "is required"}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &ValidationError{Field: "username", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	case !usernamePattern.MatchString(name):
		return &ValidationError{Field: "username", Reason: "may only contain letters, numbers, underscores and hyphens"}
	case ContainsProfanity(name):
		return &ValidationError{Field: "username", Reason: "contains inappropriate language"}
	}
	return nil
}

func ValidateTreeName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	case ContainsProfanity(name):
		return &ValidationError{Field: "name", Reason: "contains inappropriate language"}
	}
	return nil
}

func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return &ValidationError{Field: "bio", Reason: fmt.Sprintf("must be at most %d characters", MaxBioLength)}
	}
	if ContainsProfanity(bio) {
		return &ValidationError{Field: "bio", Reason: "contains inappropriate language"}
	}
	return nil
}

package moderation

import (
	"bubble-relay/errors"
	"fmt"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// NamePolicy rejects usernames and display names containing a reserved word,
// after folding case, leet substitutions and separators.
type NamePolicy struct {
	matcher *goahocorasick.Machine
}

// NewNamePolicy builds the automaton over words. Blank entries are ignored;
// an empty list accepts every name.
func NewNamePolicy(words []string) (*NamePolicy, error) {
	var patterns [][]rune
	for _, word := range words {
		if p := normalize(word); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return &NamePolicy{}, nil
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build name policy: %w", err)
	}
	return &NamePolicy{matcher: m}, nil
}

// Check returns InvalidRequest naming the first reserved word found.
func (p *NamePolicy) Check(name string) error {
	if p.matcher == nil {
		return nil
	}
	norm := normalize(name)
	if len(norm) == 0 {
		return nil
	}
	terms := p.matcher.MultiPatternSearch(norm, true)
	if len(terms) == 0 {
		return nil
	}
	return fmt.Errorf("%w: name contains reserved word %q", errors.ErrInvalidRequest, string(terms[0].Word))
}

func normalize(input string) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(unicode.ToLower(r))
		if isNoise(clean) {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// simplifyRune maps common leet characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

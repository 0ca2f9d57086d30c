package outline

import (
	"strconv"
	"strings"
	"unicode"
)

// fallbackSlug is used when nothing of the heading text survives normalization.
const fallbackSlug = "heading"

// Slug normalizes heading text into an anchor id: lowercase, keep ASCII word
// characters, CJK ideographs (U+4E00..U+9FA5), whitespace and '-', turn whitespace
// runs into '-', collapse repeated '-', trim '-' at both ends.
func Slug(text string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case isWord(r) || (r >= 0x4e00 && r <= 0x9fa5):
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func isWord(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Slugger hands out unique ids within one extraction.
// The first occurrence of a slug is bare; the n-th becomes "<slug>-n".
type Slugger struct {
	counts map[string]int
	used   map[string]bool
}

// NewSlugger creates an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{
		counts: make(map[string]int),
		used:   make(map[string]bool),
	}
}

// Next returns the unique id for a heading with the given text.
func (s *Slugger) Next(text string) string {
	base := Slug(text)
	if base == "" {
		base = fallbackSlug
	}

	n := s.counts[base] + 1
	id := base
	if n > 1 {
		id = base + "-" + strconv.Itoa(n)
	}
	// A literal "intro-2" heading may already own the suffixed id.
	for s.used[id] {
		n++
		id = base + "-" + strconv.Itoa(n)
	}
	s.counts[base] = n
	s.used[id] = true
	return id
}

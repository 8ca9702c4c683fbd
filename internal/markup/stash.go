package markup

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	stashOpen  = "\uE000"
	stashClose = "\uE001"
)

// stash holds finished Markdown fragments behind private-use placeholders so
// that later rules cannot match inside them. One stash lives for exactly one
// Convert call.
type stash struct {
	items   []string
	pattern *regexp.Regexp
}

func newStashPattern() *regexp.Regexp {
	return regexp.MustCompile(stashOpen + `(\d+)` + stashClose)
}

// put stores fragment and returns the placeholder standing in for it.
func (s *stash) put(fragment string) string {
	s.items = append(s.items, fragment)
	return stashOpen + strconv.Itoa(len(s.items)-1) + stashClose
}

// escape stashes every placeholder rune already present in text, so the
// only placeholders left in the text are the ones put creates.
func (s *stash) escape(text string) string {
	if !strings.ContainsAny(text, stashOpen+stashClose) {
		return text
	}
	escOpen, escClose := s.put(stashOpen), s.put(stashClose)
	return strings.NewReplacer(stashOpen, escOpen, stashClose, escClose).Replace(text)
}

// restore substitutes every placeholder with its fragment. Fragments may
// themselves carry placeholders (a link label holding inline code); those
// always point at earlier items, so the expansion terminates.
func (s *stash) restore(text string) string {
	return s.expand(text, len(s.items))
}

// expand restores placeholders with an index below limit and leaves any
// other placeholder untouched.
func (s *stash) expand(text string, limit int) string {
	if limit == 0 {
		return text
	}
	return s.pattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := s.pattern.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= limit {
			return m
		}
		return s.expand(s.items[idx], idx)
	})
}

package identity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// StartPage is the Trac landing page name.
	StartPage = "WikiStart"
	// HomePage is the Gollum landing page name.
	HomePage = "Home"
	// DefaultOffset is the UTC offset appended to every commit date.
	DefaultOffset = "+0000"
)

// microsecondThreshold separates Trac <0.12 float seconds from the integer
// microseconds used by later releases.
const microsecondThreshold = 1e11

// FormatAuthor returns an author in the "name <contact>" shape git requires.
//
// A value that already carries both "<" and "@" is passed through. An email
// address becomes "local <address>". Anything else is paired with the origin
// address the edit came from.
func FormatAuthor(name, origin string) string {
	if strings.Contains(name, "<") && strings.Contains(name, "@") {
		return name
	}
	if local, _, ok := strings.Cut(name, "@"); ok {
		return fmt.Sprintf("%s <%s>", local, name)
	}
	return fmt.Sprintf("%s <%s>", name, origin)
}

// FormatPage maps a Trac page name onto a Gollum page name.
func FormatPage(name string) string {
	return Pages{Start: StartPage, Home: HomePage}.Format(name)
}

// Pages holds the landing page rename applied by Format.
type Pages struct {
	Start string
	Home  string
}

// Format renames the start page and folds "/" and " " into "-".
func (p Pages) Format(name string) string {
	if name == p.Start {
		return p.Home
	}
	return strings.NewReplacer("/", "-", " ", "-").Replace(name)
}

// FormatTime returns a git date ("<seconds> <offset>") for a Trac timestamp.
func FormatTime(ts float64, offset string) string {
	if offset == "" {
		offset = DefaultOffset
	}
	if ts > microsecondThreshold {
		ts /= 1e6
	}
	return strconv.FormatInt(int64(math.Trunc(ts)), 10) + " " + offset
}

// FormatComment returns the commit message for a revision, falling back to a
// generated one when the editor left no comment.
func FormatComment(page, comment string) string {
	if strings.TrimSpace(comment) == "" {
		return fmt.Sprintf(`Page "%s" updated.`, page)
	}
	return comment
}

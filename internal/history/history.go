// Package history turns Trac page revisions into the ordered stream of
// commits that will rebuild the wiki in git.
package history

import (
	"context"
	"errors"
	"iter"

	"github.com/Napageneral/trac2gollum/internal/identity"
	"github.com/Napageneral/trac2gollum/internal/trac"
)

// FinalSuffix marks the commit message of the converted snapshot.
const FinalSuffix = " (converted to Markdown)"

// ErrConsumed is yielded when an Enumerator is ranged over a second time.
var ErrConsumed = errors.New("history: revisions already enumerated")

// ConvertedRevision is a revision ready to be committed.
type ConvertedRevision struct {
	Page    string // normalized page name
	Source  string // page name as stored in Trac
	Version int
	Date    string
	Author  string
	Message string
	Text    string
	Final   bool
}

// Source is the read side of the Trac store.
type Source interface {
	Pages(ctx context.Context) ([]string, error)
	Revisions(ctx context.Context, page string) ([]trac.Revision, error)
	Latest(ctx context.Context, page string) (trac.Revision, error)
}

// Converter rewrites page text from Trac markup to Markdown.
type Converter interface {
	Convert(text string) string
}

// Options tunes how revisions are rendered.
type Options struct {
	Pages  identity.Pages
	Offset string
}

// Enumerator walks the store one page at a time.
type Enumerator struct {
	src      Source
	conv     Converter
	pages    identity.Pages
	offset   string
	consumed bool
}

// New builds an Enumerator. Zero-value options fall back to the
// WikiStart → Home rename and a +0000 offset.
func New(src Source, conv Converter, opts Options) *Enumerator {
	if opts.Pages == (identity.Pages{}) {
		opts.Pages = identity.Pages{Start: identity.StartPage, Home: identity.HomePage}
	}
	if opts.Offset == "" {
		opts.Offset = identity.DefaultOffset
	}
	return &Enumerator{src: src, conv: conv, pages: opts.Pages, offset: opts.Offset}
}

// All yields, for every page, each stored revision verbatim in version order
// followed by one final revision holding the converted text of the highest
// version. Iteration stops at the first error, which is yielded with a zero
// revision. The sequence can be ranged over once.
func (e *Enumerator) All(ctx context.Context) iter.Seq2[ConvertedRevision, error] {
	return func(yield func(ConvertedRevision, error) bool) {
		if e.consumed {
			yield(ConvertedRevision{}, ErrConsumed)
			return
		}
		e.consumed = true

		pages, err := e.src.Pages(ctx)
		if err != nil {
			yield(ConvertedRevision{}, err)
			return
		}

		for _, page := range pages {
			if err := ctx.Err(); err != nil {
				yield(ConvertedRevision{}, err)
				return
			}

			revisions, err := e.src.Revisions(ctx, page)
			if err != nil {
				yield(ConvertedRevision{}, err)
				return
			}
			for _, rev := range revisions {
				if !yield(e.intermediate(rev), nil) {
					return
				}
			}

			latest, err := e.src.Latest(ctx, page)
			if err != nil {
				yield(ConvertedRevision{}, err)
				return
			}
			if !yield(e.final(latest), nil) {
				return
			}
		}
	}
}

func (e *Enumerator) intermediate(rev trac.Revision) ConvertedRevision {
	return ConvertedRevision{
		Page:    e.pages.Format(rev.Page),
		Source:  rev.Page,
		Version: rev.Version,
		Date:    identity.FormatTime(rev.Time, e.offset),
		Author:  identity.FormatAuthor(rev.Author, rev.Addr),
		Message: identity.FormatComment(rev.Page, rev.Comment),
		Text:    rev.Text,
	}
}

func (e *Enumerator) final(rev trac.Revision) ConvertedRevision {
	out := e.intermediate(rev)
	out.Text = e.conv.Convert(rev.Text)
	out.Message += FinalSuffix
	out.Final = true
	return out
}

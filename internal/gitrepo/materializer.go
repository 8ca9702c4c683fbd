package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Napageneral/trac2gollum/internal/history"
	"github.com/Napageneral/trac2gollum/internal/logging"
)

// CommitFailedCode tags errors raised while writing or committing a revision.
const CommitFailedCode = "COMMIT_FAILED"

// DefaultExtension is appended to every page name.
const DefaultExtension = ".md"

// Result describes one materialized revision.
type Result struct {
	Path     string
	Fallback bool
	Write    time.Duration
	Commit   time.Duration
}

// Materializer writes revisions into the working tree and commits them one
// at a time.
type Materializer struct {
	vcs  VCS
	root string
	ext  string
	log  logging.Logger
}

// NewMaterializer returns a Materializer writing below root.
func NewMaterializer(vcs VCS, root, ext string, log logging.Logger) *Materializer {
	if ext == "" {
		ext = DefaultExtension
	}
	if log == nil {
		log = logging.NoOp()
	}
	return &Materializer{vcs: vcs, root: root, ext: ext, log: log}
}

// Path returns the file a page is written to, relative to the tree root.
func (m *Materializer) Path(page string) string {
	return filepath.Clean(page + m.ext)
}

// Apply writes rev and commits it. If staging or committing the single file
// fails, the whole tree is staged and the commit retried once.
func (m *Materializer) Apply(ctx context.Context, rev history.ConvertedRevision) (Result, error) {
	res := Result{Path: m.Path(rev.Page)}
	if !filepath.IsLocal(res.Path) {
		return res, commitError(rev, fmt.Errorf("page path %q escapes the working tree", res.Path))
	}

	start := time.Now()
	if err := os.WriteFile(filepath.Join(m.root, res.Path), []byte(rev.Text), 0o644); err != nil {
		return res, commitError(rev, fmt.Errorf("write %s: %w", res.Path, err))
	}
	res.Write = time.Since(start)

	start = time.Now()
	fallback, err := m.commit(ctx, res.Path, rev)
	res.Commit = time.Since(start)
	res.Fallback = fallback
	if err != nil {
		return res, commitError(rev, err)
	}
	return res, nil
}

func (m *Materializer) commit(ctx context.Context, path string, rev history.ConvertedRevision) (bool, error) {
	err := m.vcs.Stage(ctx, path)
	if err == nil {
		err = m.vcs.Commit(ctx, rev.Author, rev.Date, rev.Message)
	}
	if err == nil {
		return false, nil
	}

	m.log.Warn("commit failed, retrying with whole tree staged",
		"page", rev.Page, "version", rev.Version, "error", err.Error())

	if err := m.vcs.StageAll(ctx); err != nil {
		return true, err
	}
	return true, m.vcs.Commit(ctx, rev.Author, rev.Date, rev.Message)
}

// Compact runs repository housekeeping once all revisions are committed.
func (m *Materializer) Compact(ctx context.Context) error {
	if err := m.vcs.Compact(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryCommand, fmt.Sprintf("compact repository: %v", err)).
			WithTextCode(CommitFailedCode)
	}
	return nil
}

func commitError(rev history.ConvertedRevision, err error) error {
	msg := fmt.Sprintf("commit %s version %d: %v", rev.Page, rev.Version, err)
	if rev.Final {
		msg = fmt.Sprintf("commit %s (converted): %v", rev.Page, err)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, msg).WithTextCode(CommitFailedCode)
}

package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Napageneral/trac2gollum/internal/config"
	"github.com/Napageneral/trac2gollum/internal/gitrepo"
	"github.com/Napageneral/trac2gollum/internal/history"
	"github.com/Napageneral/trac2gollum/internal/markup"
	"github.com/Napageneral/trac2gollum/internal/testutil"
	"github.com/Napageneral/trac2gollum/internal/trac"
)

func seededEnumerator(t *testing.T) *history.Enumerator {
	t.Helper()
	_, db := testutil.OpenTracDB(t,
		testutil.Row{Name: "TracGuide", Version: 1, Time: 1000, Author: "trac", Addr: "127.0.0.1", Text: "= Guide ="},
		testutil.Row{Name: "TracGuide", Version: 2, Time: 1001, Author: "trac", Addr: "127.0.0.1", Text: "= Guide =\nmore"},
		testutil.Row{Name: "Team/Notes", Version: 1, Time: 2000, Author: "carol@example.org", Addr: "10.0.0.7", Text: "draft"},
		testutil.Row{Name: "Team/Notes", Version: 2, Time: 2100, Author: "dave", Addr: "10.0.0.8", Text: "== Plan ==\n * ship it", Comment: "plan"},
	)
	store := trac.NewStore(db, trac.DefaultReservedAddress)
	return history.New(store, markup.New(), history.Options{})
}

func TestRunCommitsOnlyUserPages(t *testing.T) {
	root := t.TempDir()
	vcs := &gitrepo.Fake{}
	mat := gitrepo.NewMaterializer(vcs, root, ".md", nil)

	report, err := Run(context.Background(), seededEnumerator(t), mat, Options{Compact: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, ExitCode(err))

	require.Len(t, vcs.Commits, 3)
	assert.Equal(t, "carol <carol@example.org>", vcs.Commits[0].Author)
	assert.Equal(t, "2000 +0000", vcs.Commits[0].Date)
	assert.Equal(t, `Page "Team/Notes" updated.`, vcs.Commits[0].Message)
	assert.Equal(t, "plan", vcs.Commits[1].Message)
	assert.Equal(t, "plan"+history.FinalSuffix, vcs.Commits[2].Message)
	for _, c := range vcs.Commits {
		assert.Equal(t, []string{"Team-Notes.md"}, c.Paths)
	}
	assert.Equal(t, 1, vcs.Compacted)

	data, err := os.ReadFile(filepath.Join(root, "Team-Notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "## Plan\n* ship it", string(data))
	_, err = os.Stat(filepath.Join(root, "TracGuide.md"))
	assert.True(t, os.IsNotExist(err))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 3, report.Revisions)
	assert.Equal(t, 3, report.Commits)
	assert.True(t, report.Compacted)
}

func TestRunFallbackStillCommitsOnce(t *testing.T) {
	vcs := &gitrepo.Fake{Fail: map[string][]error{"commit": {errors.New("unicode path")}}}
	mat := gitrepo.NewMaterializer(vcs, t.TempDir(), ".md", nil)

	report, err := Run(context.Background(), seededEnumerator(t), mat, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, vcs.Commits, 3)
	assert.Equal(t, 1, report.Fallbacks)
	assert.Equal(t, 0, vcs.Compacted)
	assert.False(t, report.Compacted)
}

func TestRunAbortsWithCommitExitCode(t *testing.T) {
	vcs := &gitrepo.Fake{Fail: map[string][]error{"commit": {nil, errors.New("a"), errors.New("b")}}}
	mat := gitrepo.NewMaterializer(vcs, t.TempDir(), ".md", nil)

	report, err := Run(context.Background(), seededEnumerator(t), mat, Options{Compact: true}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommit, ExitCode(err))
	assert.Len(t, vcs.Commits, 1, "earlier commits are kept")
	assert.Equal(t, 0, vcs.Compacted)
	assert.Equal(t, 2, report.Revisions)
	assert.Equal(t, 1, report.Commits)
}

func TestRunCompactFailure(t *testing.T) {
	vcs := &gitrepo.Fake{Fail: map[string][]error{"compact": {errors.New("gc")}}}
	mat := gitrepo.NewMaterializer(vcs, t.TempDir(), ".md", nil)

	_, err := Run(context.Background(), seededEnumerator(t), mat, Options{Compact: true}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommit, ExitCode(err))
	assert.Len(t, vcs.Commits, 3)
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	root := t.TempDir()
	vcs := &gitrepo.Fake{}
	mat := gitrepo.NewMaterializer(vcs, root, ".md", nil)

	report, err := Run(context.Background(), seededEnumerator(t), mat, Options{DryRun: true, Compact: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, vcs.Calls)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Revisions)
	assert.Equal(t, 0, report.Commits)
	assert.Equal(t, 3, report.Metrics["skipped"])
}

func TestRunStoreFailureIsFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT name").WillReturnError(errors.New("file is not a database"))

	enum := history.New(trac.NewStore(db, trac.DefaultReservedAddress), markup.New(), history.Options{})
	vcs := &gitrepo.Fake{}

	_, err = Run(context.Background(), enum, gitrepo.NewMaterializer(vcs, t.TempDir(), ".md", nil), Options{Compact: true}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitConfig, ExitCode(err))
	assert.Contains(t, err.Error(), "file is not a database")
	assert.Empty(t, vcs.Calls)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitConfig, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitConfig, ExitCode(config.Invalid(errors.New("bad flag"))))
}

package gitrepo

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_COMMITTER_NAME", "trac2gollum")
	t.Setenv("GIT_COMMITTER_EMAIL", "trac2gollum@localhost")

	dir := t.TempDir()
	out, err := exec.Command("git", "init", "-q", dir).CombinedOutput()
	require.NoError(t, err, string(out))
	return dir
}

func gitLog(t *testing.T, dir, format string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "log", "--format="+format).CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func TestNewCLIRequiresRepository(t *testing.T) {
	_, err := NewCLI("git", t.TempDir())
	assert.Error(t, err)
}

func TestCLICommitsWithAuthorAndDate(t *testing.T) {
	dir := initRepo(t)
	cli, err := NewCLI("", dir)
	require.NoError(t, err)

	m := NewMaterializer(cli, dir, ".md", nil)
	rev := sampleRevision()
	_, err = m.Apply(context.Background(), rev)
	require.NoError(t, err)

	// Identical text still yields a commit.
	rev.Message = "same text again"
	_, err = m.Apply(context.Background(), rev)
	require.NoError(t, err)

	assert.Equal(t, "same text again\nedit", gitLog(t, dir, "%s"))
	assert.Equal(t, "bob <10.0.0.1> 1229442008", strings.Split(gitLog(t, dir, "%an <%ae> %at"), "\n")[0])

	require.NoError(t, m.Compact(context.Background()))
}

func TestCLIReportsStderr(t *testing.T) {
	dir := initRepo(t)
	cli, err := NewCLI("git", dir)
	require.NoError(t, err)

	err = cli.Stage(context.Background(), "does-not-exist.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git add")
}

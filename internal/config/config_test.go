package config

import (
	"os"
	"path/filepath"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Napageneral/trac2gollum/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trac2gollum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Default(), cfg))
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
git: /opt/local/bin/git
driver: sqlite3
time_offset: "+0200"
compact: false
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Git = "/opt/local/bin/git"
	want.Driver = "sqlite3"
	want.TimeOffset = "+0200"
	want.Compact = false
	want.Log = logging.Config{Level: "debug", Format: "json"}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"driver", "driver: postgres\n"},
		{"offset", "time_offset: UTC\n"},
		{"extension", "extension: md\n"},
		{"home page", "home_page: a/b\n"},
		{"git", "git: ''\n"},
		{"yaml", "git: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
}

func TestPages(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Home", cfg.Pages().Format("WikiStart"))
}

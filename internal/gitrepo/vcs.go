// Package gitrepo turns converted revisions into commits in a git working
// tree.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// VCS is the narrow set of version control operations the migration needs.
type VCS interface {
	Stage(ctx context.Context, path string) error
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, author, date, message string) error
	Compact(ctx context.Context) error
}

// CLI drives the git binary inside a working tree.
type CLI struct {
	Binary string
	Dir    string
}

// NewCLI returns a CLI for the repository at dir. The directory must already
// be an initialized git working tree.
func NewCLI(binary, dir string) (*CLI, error) {
	if binary == "" {
		binary = "git"
	}
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("git repository %q does not exist", dir)
	}
	return &CLI{Binary: binary, Dir: dir}, nil
}

// Stage runs "git add <path>".
func (c *CLI) Stage(ctx context.Context, path string) error {
	return c.run(ctx, "add", "--", path)
}

// StageAll stages every file present in the working tree.
func (c *CLI) StageAll(ctx context.Context) error {
	return c.run(ctx, "add", "--all", "--", ".")
}

// Commit records the index with the given author, date and message.
func (c *CLI) Commit(ctx context.Context, author, date, message string) error {
	return c.run(ctx, "commit", "--allow-empty", "--author", author, "--date", date, "-m", message)
}

// Compact runs "git gc".
func (c *CLI) Compact(ctx context.Context) error {
	return c.run(ctx, "gc")
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Dir = c.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
		return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return nil
}

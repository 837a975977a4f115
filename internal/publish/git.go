package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination commits artifacts into a directory of a local clone and
// pushes the branch, so story maps can be reviewed like code.
type GitDestination struct {
	repo   string // local clone
	dir    string // directory inside the clone, may be empty
	branch string
}

// NewGitDestination publishes into dir of the clone at repo on branch.
func NewGitDestination(repo, dir, branch string) *GitDestination {
	return &GitDestination{repo: repo, dir: dir, branch: branch}
}

func (d *GitDestination) String() string {
	return fmt.Sprintf("git:%s@%s", d.repo, d.branch)
}

// Write replaces <dir>/<name> in the clone and pushes a commit for it. An
// artifact whose content is already committed produces no commit.
func (d *GitDestination) Write(ctx context.Context, name string, data []byte) error {
	rel := filepath.Join(d.dir, filepath.FromSlash(name))

	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout %s: %w", d.branch, err)
	}
	// The remote branch may not exist yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	abs := filepath.Join(d.repo, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(rel), err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := d.git(ctx, "add", rel); err != nil {
		return fmt.Errorf("git add %s: %w", rel, err)
	}
	if d.git(ctx, "diff", "--cached", "--quiet") == nil {
		return nil
	}

	for _, step := range [][]string{
		{"commit", "-m", "storymap: update " + name},
		{"push", "origin", d.branch},
	} {
		if err := d.git(ctx, step...); err != nil {
			return fmt.Errorf("git %s: %w", step[0], err)
		}
	}
	return nil
}

// git runs a git subcommand in the clone and folds its output into the error.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

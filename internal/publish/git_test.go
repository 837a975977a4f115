package publish

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newClone returns a clone of a fresh bare repo with one commit on main.
func newClone(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}
	remote := t.TempDir()
	gitIn(t, remote, "init", "--bare")

	work := t.TempDir()
	gitIn(t, work, "clone", remote, "repo")
	repo := filepath.Join(work, "repo")
	gitIn(t, repo, "config", "user.email", "maps@example.com")
	gitIn(t, repo, "config", "user.name", "Story Maps")
	gitIn(t, repo, "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(repo, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, repo, "add", ".")
	gitIn(t, repo, "commit", "-m", "init")
	gitIn(t, repo, "push", "origin", "main")
	return repo
}

func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func commitCount(t *testing.T, repo string) string {
	t.Helper()
	return gitIn(t, repo, "rev-list", "--count", "HEAD")
}

func TestGitDestination(t *testing.T) {
	for _, tc := range []struct {
		name string
		dir  string
		file string
		want string // path of the written file inside the clone
	}{
		{name: "repo root", dir: "", file: "bundle.jsonl", want: "bundle.jsonl"},
		{name: "sub directory", dir: "maps", file: "shop/bundle.jsonl", want: filepath.Join("maps", "shop", "bundle.jsonl")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := newClone(t)
			dest := NewGitDestination(repo, tc.dir, "main")
			ctx := context.Background()

			first := []byte(`{"version":"1","type":"header"}` + "\n")
			if err := dest.Write(ctx, tc.file, first); err != nil {
				t.Fatalf("first write: %v", err)
			}
			got, err := os.ReadFile(filepath.Join(repo, tc.want))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(first) {
				t.Errorf("content = %q, want %q", got, first)
			}
			after := commitCount(t, repo)

			if err := dest.Write(ctx, tc.file, first); err != nil {
				t.Fatalf("unchanged write: %v", err)
			}
			if n := commitCount(t, repo); n != after {
				t.Errorf("unchanged write made a commit: %s -> %s", after, n)
			}

			second := []byte(`{"version":"1","type":"header","story_count":1}` + "\n")
			if err := dest.Write(ctx, tc.file, second); err != nil {
				t.Fatalf("second write: %v", err)
			}
			if n := commitCount(t, repo); n == after {
				t.Error("changed write made no commit")
			}
			if remote := gitIn(t, repo, "rev-parse", "origin/main"); remote != gitIn(t, repo, "rev-parse", "HEAD") {
				t.Error("commit was not pushed")
			}
		})
	}
}

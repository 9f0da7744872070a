package publish

import (
	"context"
	"fmt"
	"strings"
)

// Repository runs git against one working tree via "git -C <dir>".
type Repository struct {
	dir    string
	runner Runner
}

// NewRepository returns a Repository for dir.
func NewRepository(dir string, runner Runner) *Repository {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Repository{dir: dir, runner: runner}
}

// Run executes a git command and returns its output. On failure the
// returned Result still carries whatever the command printed.
func (r *Repository) Run(ctx context.Context, args ...string) (Result, error) {
	res, err := r.exec(ctx, args...)
	if err != nil {
		return res, fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

// runRedacted is Run for commands whose arguments carry secrets.
func (r *Repository) runRedacted(ctx context.Context, label string, args ...string) error {
	if _, err := r.exec(ctx, args...); err != nil {
		return fmt.Errorf("git %s in %s: %w", label, r.dir, err)
	}
	return nil
}

func (r *Repository) exec(ctx context.Context, args ...string) (Result, error) {
	full := append([]string{"-C", r.dir}, args...)
	return r.runner.Run(ctx, r.dir, "git", full...)
}

// nothingToCommit reports whether a failed commit only found a clean tree.
func nothingToCommit(res Result) bool {
	return strings.Contains(res.Stdout, "nothing to commit") ||
		strings.Contains(res.Stderr, "nothing to commit")
}

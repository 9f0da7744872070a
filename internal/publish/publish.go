// Package publish regenerates the ledger's derived views and pushes the
// ledger repository.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/hooktriage/internal/credential"
)

// TokenPlaceholder is replaced with the current token in Config.RemoteURL.
const TokenPlaceholder = "{token}"

// Config configures a Pipeline.
type Config struct {
	// Root is the ledger repository working tree.
	Root string
	// ViewsCommand regenerates derived views inside Root. Empty skips the step.
	ViewsCommand []string
	Remote       string
	Branch       string
	// RemoteURL, when set, is applied with "git remote set-url" before
	// pushing. TokenPlaceholder is substituted from Tokens.
	RemoteURL string
	Tokens    credential.Source
	Runner    Runner
	Logger    *slog.Logger
}

// Pipeline implements view regeneration and git publication.
type Pipeline struct {
	cfg    Config
	repo   *Repository
	runner Runner
	logger *slog.Logger
}

// New returns a Pipeline for cfg.
func New(cfg Config) *Pipeline {
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Tokens == nil {
		cfg.Tokens = credential.Static("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		repo:   NewRepository(cfg.Root, cfg.Runner),
		runner: cfg.Runner,
		logger: logger,
	}
}

// CommitMessage formats the commit message for a triage run.
func CommitMessage(taskID, agent string) string {
	return fmt.Sprintf("%s: %s automated triage (hook handler)", taskID, agent)
}

// RegenerateViews runs the configured views command in the ledger root.
func (p *Pipeline) RegenerateViews(ctx context.Context) error {
	argv := p.cfg.ViewsCommand
	if len(argv) == 0 {
		p.logger.Debug("publish: no views command configured")
		return nil
	}
	res, err := p.runner.Run(ctx, p.cfg.Root, argv[0], argv[1:]...)
	if err != nil {
		return fmt.Errorf("publish: regenerate views (%s): %w (stderr: %s)",
			strings.Join(argv, " "), err, strings.TrimSpace(res.Stderr))
	}
	p.logger.Info("views regenerated", slog.String("command", strings.Join(argv, " ")))
	return nil
}

// Publish stages everything in the ledger repository, commits with message
// and pushes. A clean tree is not an error.
func (p *Pipeline) Publish(ctx context.Context, message string) error {
	if p.cfg.RemoteURL != "" {
		if err := p.setRemoteURL(ctx); err != nil {
			return err
		}
	}

	if _, err := p.repo.Run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	res, err := p.repo.Run(ctx, "commit", "-m", message)
	switch {
	case err == nil:
		p.logger.Info("ledger committed", slog.String("message", message))
	case nothingToCommit(res):
		p.logger.Info("ledger unchanged, nothing to commit")
	default:
		return fmt.Errorf("publish: %w", err)
	}

	if _, err := p.repo.Run(ctx, "push", p.cfg.Remote, p.cfg.Branch); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.logger.Info("ledger pushed",
		slog.String("remote", p.cfg.Remote),
		slog.String("branch", p.cfg.Branch))
	return nil
}

func (p *Pipeline) setRemoteURL(ctx context.Context) error {
	url := p.cfg.RemoteURL
	if strings.Contains(url, TokenPlaceholder) {
		token, err := p.cfg.Tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		url = strings.ReplaceAll(url, TokenPlaceholder, token)
	}
	if err := p.repo.runRedacted(ctx, "remote set-url "+p.cfg.Remote, "remote", "set-url", p.cfg.Remote, url); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

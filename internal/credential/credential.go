// Package credential resolves the API token used for issue fetches and pushes.
package credential

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Source yields an API token. An empty token means unauthenticated access.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token.
type Static string

// Token returns the fixed token.
func (s Static) Token(context.Context) (string, error) {
	return string(s), nil
}

// Command runs an external helper and uses its trimmed stdout as the token.
// The helper runs on every call so short-lived installation tokens stay fresh.
type Command struct {
	Argv []string
}

// Token executes the helper.
func (c Command) Token(ctx context.Context) (string, error) {
	if len(c.Argv) == 0 {
		return "", fmt.Errorf("credential: empty token command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("credential: %s: %w (stderr: %s)",
			c.Argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// New picks a Source: a configured token wins over a token command.
func New(token string, command []string) Source {
	if token != "" || len(command) == 0 {
		return Static(token)
	}
	return Command{Argv: command}
}

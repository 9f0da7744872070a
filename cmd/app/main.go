package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/hooktriage/internal"
	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/github"
	"github.com/starford/hooktriage/internal/pipeline"
	pkgconfig "github.com/starford/hooktriage/pkg/config"
)

// loadConfig reads the config file (if any) and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("ledger-path") {
		cfg.Ledger.Path = cmd.String("ledger-path")
	}
	if cmd.IsSet("agent") {
		cfg.Agent.Name = cmd.String("agent")
	}
	if cmd.Bool("no-publish") {
		cfg.Publish.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// readMessage joins args with spaces, or reads all of stdin when there are none.
func readMessage(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// report prints the progress lines for a run.
func report(w io.Writer, out *pipeline.Outcome) {
	if out == nil {
		return
	}
	if out.Intent.HasIssue() {
		fmt.Fprintf(w, "Processing hook: Issue #%d\n", out.Intent.IssueNumber)
	}
	if out.Event != nil {
		fmt.Fprintf(w, "Ledger event written: %s for %s\n", out.Event.Event, out.Event.TaskOrNA())
	}
	if out.Published {
		fmt.Fprintln(w, "Changes committed and pushed")
		fmt.Fprintf(w, "Triage complete for issue #%d\n", out.Intent.IssueNumber)
	}
}

// hookError maps a failed run to the exit error shown to the operator.
func hookError(out *pipeline.Outcome, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNoIssueNumber):
		return cli.Exit("No issue number found in hook message", 1)
	case github.IsNotFound(err) && out != nil:
		return cli.Exit(fmt.Sprintf("Issue #%d not found", out.Intent.IssueNumber), 1)
	default:
		return err
	}
}

func handle(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	msg, err := readMessage(cmd.Args().Slice(), os.Stdin)
	if err != nil {
		return err
	}

	out, err := internal.HandleHook(ctx, msg, internal.WithConfig(cfg))
	report(os.Stdout, out)
	if err != nil {
		return hookError(out, err)
	}
	if !out.Published {
		fmt.Fprintf(os.Stdout, "Triage complete for issue #%d (not published)\n", out.Intent.IssueNumber)
	}
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func tail(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lines, err := internal.TailLedger(int(cmd.Int("n")), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(os.Stdout, string(l.Raw))
	}
	return nil
}

func search(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return errors.New("search query is required")
	}
	results, err := internal.SearchLedger(query, int(cmd.Int("limit")), internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	for _, r := range results {
		task := r.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(os.Stdout, "%d\t%s\t%s\t%s\n", r.Line, r.Event, task, r.Snippet)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "hooktriage",
		Usage:     "Triage GitHub hook notifications into the agent ledger",
		ArgsUsage: "[hook message...]",
		Action:    handle,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "ledger-path",
				Usage:   "Ledger repository root",
				Sources: cli.EnvVars("DANA_LEDGER_PATH"),
			},
			&cli.StringFlag{
				Name:    "agent",
				Usage:   "Agent id to triage for",
				Sources: cli.EnvVars("AGENT_NAME"),
			},
			&cli.BoolFlag{
				Name:  "no-publish",
				Usage: "Append to the ledger without regenerating views or pushing",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP hook receiver and ledger query API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve triage and ledger tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:  "ledger",
				Usage: "Inspect the ledger",
				Commands: []*cli.Command{
					{
						Name:   "tail",
						Usage:  "Print the last ledger lines",
						Action: tail,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "n", Value: 20, Usage: "Number of lines"},
						},
					},
					{
						Name:      "search",
						Usage:     "Full-text search the ledger",
						ArgsUsage: "<query>",
						Action:    search,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum results"},
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// Package pipeline runs one hook end to end: parse, fetch, triage, append,
// publish. Any failure aborts the run; nothing is retried or rolled back.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/models"
	"github.com/starford/hooktriage/internal/parser"
	"github.com/starford/hooktriage/internal/publish"
	"github.com/starford/hooktriage/internal/triage"
)

// IssueFetcher resolves an issue number to its canonical record.
type IssueFetcher interface {
	FetchIssue(ctx context.Context, number int) (*models.IssueRecord, error)
}

// Ledger appends stamped events.
type Ledger interface {
	Append(event models.LedgerEvent, agent string) (models.LedgerEvent, error)
}

// Publisher regenerates views and publishes the ledger repository.
type Publisher interface {
	RegenerateViews(ctx context.Context) error
	Publish(ctx context.Context, message string) error
}

// Outcome describes a run. On a publish failure Event is populated: the
// local ledger already holds it even though it was not published.
type Outcome struct {
	RunID     string              `json:"run_id"`
	Intent    models.HookIntent   `json:"intent"`
	Issue     *models.IssueRecord `json:"issue,omitempty"`
	Decision  *triage.Decision    `json:"decision,omitempty"`
	Event     *models.LedgerEvent `json:"event,omitempty"`
	TaskID    string              `json:"task_id,omitempty"`
	Published bool                `json:"published"`
}

// Service wires the collaborators together. Handle calls are serialized so a
// process has a single ledger writer.
type Service struct {
	engine    *triage.Engine
	fetcher   IssueFetcher
	ledger    Ledger
	publisher Publisher
	logger    *slog.Logger

	mu sync.Mutex

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets the publisher. Without one, runs stop after the append.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Service.
func New(engine *triage.Engine, fetcher IssueFetcher, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		engine:  engine,
		fetcher: fetcher,
		ledger:  ledger,
		logger:  slog.Default(),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Agent returns the agent the service triages for.
func (s *Service) Agent() string {
	return s.engine.Agent()
}

// Handle processes one raw hook message.
func (s *Service) Handle(ctx context.Context, raw string) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, issue, err := s.decide(ctx, raw)
	if err != nil {
		return out, err
	}
	logger := s.logger.With(slog.String("run_id", out.RunID), slog.Int("issue", issue.Number))

	event, err := s.ledger.Append(out.Decision.Event, s.engine.Agent())
	if err != nil {
		return out, fmt.Errorf("%w: %w", apperr.ErrAppend, err)
	}
	out.Event = &event
	logger.Info("ledger event written",
		slog.String("event", string(event.Event)),
		slog.String("task", event.TaskOrNA()))

	if s.publisher == nil {
		return out, nil
	}

	if err := s.publisher.RegenerateViews(ctx); err != nil {
		return out, fmt.Errorf("%w: %w", apperr.ErrPublish, err)
	}
	if err := s.publisher.Publish(ctx, publish.CommitMessage(out.TaskID, s.engine.Agent())); err != nil {
		return out, fmt.Errorf("%w: %w", apperr.ErrPublish, err)
	}
	out.Published = true
	logger.Info("triage complete")
	return out, nil
}

// Preview runs parse, fetch and triage without touching the ledger.
func (s *Service) Preview(ctx context.Context, raw string) (*Outcome, error) {
	out, _, err := s.decide(ctx, raw)
	return out, err
}

func (s *Service) decide(ctx context.Context, raw string) (*Outcome, *models.IssueRecord, error) {
	out := &Outcome{RunID: s.newRunID(), Intent: parser.Parse(raw)}
	if !out.Intent.HasIssue() {
		return out, nil, apperr.ErrNoIssueNumber
	}

	logger := s.logger.With(slog.String("run_id", out.RunID), slog.Int("issue", out.Intent.IssueNumber))
	logger.Info("processing hook", slog.String("event_label", out.Intent.EventLabel))

	issue, err := s.fetcher.FetchIssue(ctx, out.Intent.IssueNumber)
	if err != nil {
		return out, nil, fmt.Errorf("%w: %w", apperr.ErrFetch, err)
	}
	out.Issue = issue

	d := s.engine.Decide(out.Intent, *issue)
	out.Decision = &d
	// The commit message names the task even when the event is a block.
	out.TaskID = triage.ExtractTaskID(issue.Title)
	return out, issue, nil
}

func (s *Service) newRunID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

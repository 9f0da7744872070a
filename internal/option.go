package internal

import (
	"io"

	"github.com/starford/hooktriage/internal/pipeline"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	fetcher   pipeline.IssueFetcher
	publisher pipeline.Publisher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sets where structured logs are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithIssueFetcher replaces the GitHub issue client.
func WithIssueFetcher(f pipeline.IssueFetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithPublisher replaces the git publication pipeline.
func WithPublisher(p pipeline.Publisher) Option {
	return func(a *application) {
		a.publisher = p
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/config"
	"github.com/bureau-foundation/taskflow/lib/git"
	"github.com/bureau-foundation/taskflow/lib/github"
	"github.com/bureau-foundation/taskflow/lib/lifecycle"
	"github.com/bureau-foundation/taskflow/lib/task"
	"github.com/bureau-foundation/taskflow/lib/taskstore"
	"github.com/bureau-foundation/taskflow/lib/tasksync"
	"github.com/bureau-foundation/taskflow/lib/tracker"
)

// environment is what the command tree needs from the process. Root
// fills it from the real process; tests substitute writers, a fake
// clock, and a scripted gh.
type environment struct {
	stdout io.Writer
	stdin  io.Reader
	clock  clock.Clock

	// ghRunner defaults to running the gh binary.
	ghRunner tracker.Runner
	// httpClient is used by the REST transport. Nil selects
	// http.DefaultClient.
	httpClient *http.Client
	// color enables styled output.
	color bool
	// interactive is true when stdin and stdout are terminals.
	interactive bool
}

// sessionParams are the flags every data command shares.
type sessionParams struct {
	Config   string `json:"-" flag:"config" desc:"config file (default $TASKFLOW_CONFIG)"`
	Database string `json:"-" flag:"db" desc:"task database path, overriding the config"`
	Verbose  bool   `json:"-" flag:"verbose,v" desc:"log debug detail to stderr"`
}

// LogLevel satisfies cli.Leveler.
func (p *sessionParams) LogLevel() slog.Level {
	if p.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// session holds the collaborators opened for one command invocation.
type session struct {
	env    *environment
	config *config.Config
	store  *taskstore.Store
	vcs    *git.Repository
	engine *lifecycle.Engine
	logger *slog.Logger
}

func (env *environment) openSession(params sessionParams, logger *slog.Logger) (*session, error) {
	var cfg *config.Config
	var err error
	if params.Config != "" {
		cfg, err = config.LoadFile(params.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if params.Database != "" {
		cfg.Database = params.Database
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}

	store, err := taskstore.Open(taskstore.Config{
		Path:   cfg.Database,
		Clock:  env.clock,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	vcs := git.NewRepository(cfg.Repository).WithTimeout(cfg.Timeout())
	engine, err := lifecycle.New(lifecycle.Config{
		Repository:   store,
		VCS:          vcs,
		Clock:        env.clock,
		Logger:       logger,
		BranchPrefix: cfg.BranchPrefix,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("session opened", "database", cfg.Database, "repository", cfg.Repository)
	return &session{
		env:    env,
		config: cfg,
		store:  store,
		vcs:    vcs,
		engine: engine,
		logger: logger,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// trackerRepository returns the configured "owner/repo", or detects it
// from the origin remote.
func (s *session) trackerRepository(ctx context.Context) (string, error) {
	if s.config.Tracker.Repository != "" {
		return s.config.Tracker.Repository, nil
	}
	remote, err := s.vcs.RemoteURL(ctx, "origin")
	if err != nil {
		return "", fmt.Errorf("%w: tracker.repository is not set and the origin remote could not be read: %w",
			task.ErrConfiguration, err)
	}
	repository, err := tracker.DetectRepository(remote, s.config.Tracker.Host)
	if err != nil {
		return "", err
	}
	s.logger.Debug("detected tracker repository", "repository", repository, "remote", remote)
	return repository, nil
}

// gateway builds the tracker gateway for the configured transport.
func (s *session) gateway(ctx context.Context) (tracker.Gateway, error) {
	repository, err := s.trackerRepository(ctx)
	if err != nil {
		return nil, err
	}
	trackerConfig := s.config.Tracker

	switch trackerConfig.Transport {
	case config.TransportREST:
		token := s.config.Token()
		if token == "" {
			return nil, fmt.Errorf("%w: the rest transport needs a token in $%s",
				task.ErrConfiguration, trackerConfig.TokenEnv)
		}
		client, err := github.NewClient(github.Config{
			BaseURL:    trackerConfig.APIURL,
			Token:      token,
			HTTPClient: s.env.httpClient,
			Clock:      s.env.clock,
			Logger:     s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", task.ErrConfiguration, err)
		}
		return tracker.NewREST(tracker.RESTConfig{
			Client:     client,
			Repository: repository,
			Timeout:    s.config.Timeout(),
		})
	default:
		return tracker.NewCLI(tracker.CLIConfig{
			Repository: repository,
			Host:       trackerConfig.Host,
			Timeout:    s.config.Timeout(),
			Runner:     s.env.ghRunner,
		})
	}
}

// reconciler builds a reconciler over the session's store and the
// configured tracker. Unauthenticated trackers are rejected up front
// so a push does not fail halfway through with a credential error.
func (s *session) reconciler(ctx context.Context) (*tasksync.Reconciler, error) {
	gateway, err := s.gateway(ctx)
	if err != nil {
		return nil, err
	}
	authenticated, err := gateway.IsAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !authenticated {
		return nil, fmt.Errorf("%w: not authenticated with %s (run 'gh auth login' or set $%s)",
			task.ErrConfiguration, gateway.Provider(), s.config.Tracker.TokenEnv)
	}
	return tasksync.New(tasksync.Config{
		Repository:  s.store,
		Gateway:     gateway,
		Clock:       s.env.clock,
		Logger:      s.logger,
		MarkerLabel: s.config.Tracker.MarkerLabel,
	})
}

// processEnvironment returns the environment for the running binary.
func processEnvironment() *environment {
	_, noColor := os.LookupEnv("NO_COLOR")
	return &environment{
		stdout:      os.Stdout,
		stdin:       os.Stdin,
		clock:       clock.Real(),
		color:       !noColor && isTerminal(os.Stdout),
		interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
	}
}

// closeSession closes s and joins any failure into err.
func closeSession(s *session, err *error) {
	if closeErr := s.Close(); closeErr != nil {
		*err = errors.Join(*err, closeErr)
	}
}

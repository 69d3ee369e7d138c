package main

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sirupsen/logrus"

	"github.com/reillywatson/dorametrics/internal/cache"
	"github.com/reillywatson/dorametrics/internal/config"
	"github.com/reillywatson/dorametrics/internal/deploy"
	"github.com/reillywatson/dorametrics/internal/github"
	"github.com/reillywatson/dorametrics/internal/jira"
	"github.com/reillywatson/dorametrics/internal/report"
)

// sources bundles the upstream clients a command reads from and the resources they hold
type sources struct {
	releases report.ReleaseSource
	issues   report.IssueSource
	closers  []io.Closer
}

func (s *sources) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func jiraOptions(cfg *config.Config) jira.Options {
	return jira.Options{
		BaseURL:     cfg.Jira.BaseURL,
		Email:       cfg.Jira.Email,
		APIToken:    cfg.Jira.APIToken,
		BearerToken: cfg.Jira.BearerToken,
		Timeout:     cfg.Jira.Timeout,
		MaxResults:  cfg.Jira.MaxResults,
		Priorities:  cfg.Jira.Priorities,
		DoneStatus:  cfg.Jira.DoneStatus,
	}
}

// openSources builds the clients selected by cfg. Releases are only wired when
// wantReleases is set, so repair-only runs never need release source credentials.
// Every client shares one cache, which is closed once by sources.Close.
func openSources(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, wantReleases bool) (*sources, error) {
	cacheImpl, err := cache.New(cfg.Cache.Dir, cfg.Cache.Disabled)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cache")
	}

	s := &sources{closers: []io.Closer{cacheImpl}}

	jiraClient := jira.NewCachedClient(jiraOptions(cfg), cacheImpl, cfg.Cache.TTL, log)
	s.issues = jiraClient

	if !wantReleases {
		return s, nil
	}

	switch cfg.ReleaseSource {
	case config.SourceJira:
		s.releases = jiraClient
	case config.SourceGitHub:
		s.releases = github.NewCachedGitHubClient(cfg.GitHub.Token, cacheImpl, cfg.Cache.TTL, log)
	case config.SourceCloudDeploy:
		deployClient, err := deploy.NewDeployClient(ctx, cfg.CloudDeploy.ProjectID, cfg.CloudDeploy.Region, cfg.CloudDeploy.PipelineFilter, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.releases = deployClient
		s.closers = append(s.closers, deployClient)
	default:
		s.Close()
		return nil, goerr.New("unknown release source", goerr.V("release_source", cfg.ReleaseSource))
	}

	log.WithFields(logrus.Fields{
		"release_source":  cfg.ReleaseSource,
		"release_project": cfg.ReleaseProject(),
	}).Debug("release source ready")

	return s, nil
}

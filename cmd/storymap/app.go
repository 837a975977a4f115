package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/storymap/internal/config"
	"github.com/alfredjeanlab/storymap/internal/events"
	"github.com/alfredjeanlab/storymap/internal/extract"
	"github.com/alfredjeanlab/storymap/internal/merge"
	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/publish"
	"github.com/alfredjeanlab/storymap/internal/store"
	"github.com/alfredjeanlab/storymap/internal/store/postgres"
	"github.com/alfredjeanlab/storymap/internal/store/sqlite"
)

// newService wires a pipeline.Service from the loaded config. Event, archive
// and publish backends that fail to connect are logged and left out; they
// are side channels and never block a file operation. The returned func
// releases whatever was opened.
func newService(ctx context.Context) (*pipeline.Service, func()) {
	var closers []func() error

	pub, err := events.NewPublisher(cfg.Events.NATSURL)
	if err != nil {
		logger.Warn("events disabled", "nats_url", cfg.Events.NATSURL, "err", err)
		pub = &events.NoopPublisher{}
	} else if cfg.Events.NATSURL != "" {
		logger.Debug("events enabled", "nats_url", cfg.Events.NATSURL)
	}
	closers = append(closers, pub.Close)

	archive, err := openArchive(cfg.Archive)
	if err != nil {
		logger.Warn("archive disabled", "driver", cfg.Archive.Driver, "err", err)
	}
	if archive != nil {
		closers = append(closers, archive.Close)
	}

	svc := pipeline.New(pipeline.Options{
		Extract: extract.Options{
			UserTolerance:      cfg.Sync.UserTolerance,
			SequenceTolerance:  cfg.Sync.SequenceTolerance,
			IncrementTolerance: cfg.Sync.IncrementTolerance,
		},
		Matcher:   newMatcher(cfg),
		Events:    pub,
		Archive:   archive,
		Publisher: publish.NewPublisher(destinations(ctx, cfg.Publish), logger),
		Logger:    logger,
	})
	return svc, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Debug("close failed", "err", err)
			}
		}
	}
}

func newMatcher(c *config.Config) *merge.Matcher {
	m := merge.NewMatcher()
	m.Threshold = c.Merge.FuzzyThreshold
	m.DeletionRatio = c.Merge.DeletionRatio
	return m
}

// openArchive returns nil without error when no archive is configured.
func openArchive(c config.ArchiveConfig) (store.Archive, error) {
	switch c.Driver {
	case "":
		return nil, nil
	case "postgres":
		a, err := postgres.New(c.DSN)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "sqlite":
		a, err := sqlite.New(c.DSN)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", c.Driver)
	}
}

// destinations builds the publish targets enabled in c.
func destinations(ctx context.Context, c config.PublishConfig) []publish.Destination {
	var dests []publish.Destination
	if c.S3Bucket != "" {
		d, err := publish.NewS3Destination(ctx, c.S3Bucket, c.S3KeyPrefix, c.S3Region, c.S3Endpoint)
		if err != nil {
			logger.Warn("S3 publishing disabled", "bucket", c.S3Bucket, "err", err)
		} else {
			dests = append(dests, d)
			logger.Debug("S3 publishing enabled", "bucket", c.S3Bucket, "prefix", c.S3KeyPrefix)
		}
	}
	if c.GitRepo != "" {
		dests = append(dests, publish.NewGitDestination(c.GitRepo, c.GitDir, c.GitBranch))
		logger.Debug("git publishing enabled", "repo", c.GitRepo, "dir", c.GitDir)
	}
	return dests
}

// Package publish copies story map artifacts to shared destinations after a
// sync or merge.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
)

// Destination is the interface for a publish target (S3, git, etc.).
type Destination interface {
	// Write stores data under name, a slash-separated relative path.
	Write(ctx context.Context, name string, data []byte) error
	// String names the destination in logs.
	String() string
}

// Artifact is one file to publish.
type Artifact struct {
	Name string
	Data []byte
}

// Publisher fans artifacts out to every destination.
type Publisher struct {
	destinations []Destination
	logger       *slog.Logger
}

// NewPublisher creates a publisher for the given destinations.
func NewPublisher(destinations []Destination, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{destinations: destinations, logger: logger}
}

// Enabled reports whether any destination is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && len(p.destinations) > 0
}

// Publish writes each artifact to every destination as <mapName>/<name>.
// A failing destination does not stop the others; the failures are logged
// and returned together.
func (p *Publisher) Publish(ctx context.Context, mapName string, artifacts ...Artifact) error {
	if !p.Enabled() {
		return nil
	}
	var errs []error
	for _, dest := range p.destinations {
		for _, a := range artifacts {
			name := path.Join(mapName, a.Name)
			if err := dest.Write(ctx, name, a.Data); err != nil {
				p.logger.Error("publish write failed", "destination", dest.String(), "name", name, "err", err)
				errs = append(errs, fmt.Errorf("%s: %w", dest, err))
				continue
			}
			p.logger.Debug("published", "destination", dest.String(), "name", name, "bytes", len(a.Data))
		}
	}
	p.logger.Info("publish completed", "map", mapName, "destinations", len(p.destinations), "artifacts", len(artifacts))
	return errors.Join(errs...)
}

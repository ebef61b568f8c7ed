package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Repository and Notifier are optional.
type PipelineDeps struct {
	Fetcher    ports.MetricFetcher
	Renderer   ports.Renderer
	Artifacts  ports.ArtifactWriter
	Publisher  ports.Publisher
	Repository ports.PublicationRepository
	Notifier   ports.Notifier
	Logger     *slog.Logger

	ChannelID     string
	Goal          int
	OutputPath    string
	SkipUnchanged bool
}

// Pipeline implements one fetch, render and publish run.
type Pipeline struct {
	fetcher    ports.MetricFetcher
	renderer   ports.Renderer
	artifacts  ports.ArtifactWriter
	publisher  ports.Publisher
	repository ports.PublicationRepository
	notifier   ports.Notifier
	logger     *slog.Logger

	channelID     string
	goal          int
	outputPath    string
	skipUnchanged bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		fetcher:       deps.Fetcher,
		renderer:      deps.Renderer,
		artifacts:     deps.Artifacts,
		publisher:     deps.Publisher,
		repository:    deps.Repository,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		channelID:     deps.ChannelID,
		goal:          deps.Goal,
		outputPath:    deps.OutputPath,
		skipUnchanged: deps.SkipUnchanged,
	}
}

// Run executes the pipeline once. The first failing step aborts the run;
// nothing is rendered or uploaded when the count cannot be fetched.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) error {
	if p.fetcher == nil || p.renderer == nil || p.publisher == nil {
		return fmt.Errorf("%w: pipeline requires a fetcher, a renderer and a publisher", domain.ErrConfigMissing)
	}

	dest := p.publisher.Destination()
	p.debug("pipeline run started", "trigger", trigger, "channel", p.channelID, "destination", dest)

	count, err := p.fetcher.FetchCount(ctx, p.channelID)
	if err != nil {
		return fmt.Errorf("fetch subscriber count: %w", err)
	}

	metric, err := domain.NewProgressMetric(count, p.goal)
	if err != nil {
		return fmt.Errorf("build progress metric: %w", err)
	}
	p.info("Subscriber count fetched", "count", metric.Count, "goal", metric.Goal, "percentage", metric.PercentageLabel())

	if p.skipUnchanged && p.repository != nil {
		last, found, err := p.repository.LastPublication(ctx, p.channelID, dest)
		if err != nil {
			return fmt.Errorf("load last publication: %w", err)
		}
		if found && last.Unchanged(metric) {
			p.info("Banner unchanged since last publication, skipping upload",
				"count", metric.Count, "published_at", last.PublishedAt)
			return nil
		}
	}

	image, err := p.renderer.Render(metric)
	if err != nil {
		return fmt.Errorf("render banner: %w", err)
	}

	if p.artifacts != nil && p.outputPath != "" {
		if err := p.artifacts.WriteArtifact(p.outputPath, image); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		p.info("Banner saved", "path", p.outputPath, "bytes", len(image))
	}

	pub, err := p.publisher.Publish(ctx, image)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", dest, err)
	}
	pub.ChannelID = p.channelID
	pub.Count = metric.Count
	pub.Goal = metric.Goal
	if pub.Destination == "" {
		pub.Destination = dest
	}
	if pub.PublishedAt.IsZero() {
		pub.PublishedAt = trigger.UTC()
	}
	p.info("Banner published", "destination", pub.Destination, "remote_id", pub.RemoteID, "url", pub.URL)

	if p.repository != nil {
		if err := p.repository.SavePublication(ctx, pub); err != nil {
			return fmt.Errorf("save publication: %w", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, NotificationMessage(metric, pub)); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}

	return nil
}

// NotificationMessage renders the chat notice for a publication.
func NotificationMessage(metric domain.ProgressMetric, pub domain.Publication) string {
	remote := pub.URL
	if remote == "" {
		remote = pub.RemoteID
	}
	return fmt.Sprintf("Banner updated: %d / %d subscribers (%s) -> %s %s",
		metric.Count, metric.Goal, metric.PercentageLabel(), pub.Destination, remote)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, args...)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(msg, args...)
}

package ports

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"ChannelBanner/internal/domain"
)

// MetricFetcher reads the live subscriber count of a channel.
type MetricFetcher interface {
	FetchCount(ctx context.Context, channelID string) (int, error)
}

// Renderer composes the banner image for a progress metric.
type Renderer interface {
	Render(metric domain.ProgressMetric) ([]byte, error)
}

// ArtifactWriter persists the rendered image locally before upload.
type ArtifactWriter interface {
	WriteArtifact(path string, data []byte) error
}

// Publisher uploads a rendered banner to one destination variant.
type Publisher interface {
	Destination() domain.Destination
	Publish(ctx context.Context, image []byte) (domain.Publication, error)
}

// CredentialStore owns the cached OAuth token and its lifecycle.
type CredentialStore interface {
	Load() (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
	Persist(tok *oauth2.Token) error
	Client(ctx context.Context) (*http.Client, error)
}

// PublicationRepository keeps the history of published banners.
type PublicationRepository interface {
	LastPublication(ctx context.Context, channelID string, dest domain.Destination) (domain.Publication, bool, error)
	SavePublication(ctx context.Context, pub domain.Publication) error
}

// Notifier announces a successful publication to chat channels.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/infrastructure/apierror"
	"ChannelBanner/internal/ports"
)

// BannerPublisher uploads the image through channelBanners.insert.
type BannerPublisher struct {
	credentials ports.CredentialStore
	endpoint    string
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.Publisher = (*BannerPublisher)(nil)

// NewBannerPublisher wires the credential store; endpoint overrides the API base URL when set.
func NewBannerPublisher(credentials ports.CredentialStore, endpoint string, logger *slog.Logger) *BannerPublisher {
	return &BannerPublisher{
		credentials: credentials,
		endpoint:    endpoint,
		logger:      logger,
		now:         time.Now,
	}
}

// Destination identifies the publisher inside the registry.
func (p *BannerPublisher) Destination() domain.Destination {
	return domain.DestinationBanner
}

// Publish uploads the PNG; the returned URL is what channel branding settings reference.
func (p *BannerPublisher) Publish(ctx context.Context, image []byte) (domain.Publication, error) {
	if len(image) == 0 {
		return domain.Publication{}, fmt.Errorf("%w: empty banner image", domain.ErrInvalidArgument)
	}
	if p.credentials == nil {
		return domain.Publication{}, fmt.Errorf("%w: youtube credentials are not configured", domain.ErrConfigMissing)
	}

	client, err := p.credentials.Client(ctx)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("authorize youtube: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("youtube service: %w", err)
	}

	resource, err := svc.ChannelBanners.
		Insert(&yt.ChannelBannerResource{}).
		Media(bytes.NewReader(image), googleapi.ContentType("image/png")).
		Context(ctx).
		Do()
	if err != nil {
		return domain.Publication{}, apierror.Upload(domain.DestinationBanner, err)
	}

	if p.logger != nil {
		p.logger.Info("Banner uploaded to YouTube", "url", resource.Url, "etag", resource.Etag)
	}

	return domain.Publication{
		Destination: domain.DestinationBanner,
		RemoteID:    resource.Url,
		URL:         resource.Url,
		PublishedAt: p.now().UTC(),
	}, nil
}

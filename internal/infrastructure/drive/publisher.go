package drive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/infrastructure/apierror"
	"ChannelBanner/internal/ports"
)

// Publisher creates the banner as a new file inside a Drive folder.
type Publisher struct {
	credentials ports.CredentialStore
	folderID    string
	fileName    string
	endpoint    string
	logger      *slog.Logger
	now         func() time.Time
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher binds the target folder and the file name used for uploads.
func NewPublisher(credentials ports.CredentialStore, folderID, fileName, endpoint string, logger *slog.Logger) *Publisher {
	return &Publisher{
		credentials: credentials,
		folderID:    folderID,
		fileName:    fileName,
		endpoint:    endpoint,
		logger:      logger,
		now:         time.Now,
	}
}

// Destination identifies the publisher inside the registry.
func (p *Publisher) Destination() domain.Destination {
	return domain.DestinationDrive
}

// Publish uploads the PNG with files.create and returns the new file id.
func (p *Publisher) Publish(ctx context.Context, image []byte) (domain.Publication, error) {
	if len(image) == 0 {
		return domain.Publication{}, fmt.Errorf("%w: empty banner image", domain.ErrInvalidArgument)
	}
	if p.folderID == "" {
		return domain.Publication{}, fmt.Errorf("%w: drive folder id is required", domain.ErrConfigMissing)
	}
	if p.credentials == nil {
		return domain.Publication{}, fmt.Errorf("%w: drive credentials are not configured", domain.ErrConfigMissing)
	}

	client, err := p.credentials.Client(ctx)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("authorize drive: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("drive service: %w", err)
	}

	file, err := svc.Files.
		Create(&gdrive.File{
			Name:     p.fileName,
			Parents:  []string{p.folderID},
			MimeType: "image/png",
		}).
		Media(bytes.NewReader(image), googleapi.ContentType("image/png")).
		SupportsAllDrives(true).
		Fields("id", "name", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return domain.Publication{}, apierror.Upload(domain.DestinationDrive, err)
	}

	if p.logger != nil {
		p.logger.Info("Banner uploaded to Google Drive", "file_id", file.Id, "folder", p.folderID)
	}

	return domain.Publication{
		Destination: domain.DestinationDrive,
		RemoteID:    file.Id,
		URL:         file.WebViewLink,
		PublishedAt: p.now().UTC(),
	}, nil
}

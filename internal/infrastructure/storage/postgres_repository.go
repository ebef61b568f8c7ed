package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

const (
	publicationsTable = "banner_publications"
	undefinedTable    = "42P01"
)

const schema = `CREATE TABLE IF NOT EXISTS banner_publications (
    id               BIGSERIAL PRIMARY KEY,
    channel_id       TEXT        NOT NULL,
    destination      TEXT        NOT NULL,
    subscriber_count INTEGER     NOT NULL,
    goal             INTEGER     NOT NULL,
    remote_id        TEXT        NOT NULL DEFAULT '',
    url              TEXT        NOT NULL DEFAULT '',
    published_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS banner_publications_lookup
    ON banner_publications (channel_id, destination, published_at DESC)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists the publication history into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.PublicationRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the history table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LastPublication returns the newest publication for the channel and destination.
func (r *PostgresRepository) LastPublication(ctx context.Context, channelID string, dest domain.Destination) (domain.Publication, bool, error) {
	if r.db == nil {
		return domain.Publication{}, false, nil
	}

	query, args, err := psql.
		Select("channel_id", "destination", "subscriber_count", "goal", "remote_id", "url", "published_at").
		From(publicationsTable).
		Where(sq.Eq{"channel_id": channelID, "destination": string(dest)}).
		OrderBy("published_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Publication{}, false, fmt.Errorf("build last publication query: %w", err)
	}

	var (
		pub         domain.Publication
		destination string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&pub.ChannelID,
		&destination,
		&pub.Count,
		&pub.Goal,
		&pub.RemoteID,
		&pub.URL,
		&pub.PublishedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Publication{}, false, nil
	case err != nil:
		return domain.Publication{}, false, fmt.Errorf("query last publication: %w", describe(err))
	}

	pub.Destination = domain.Destination(destination)
	return pub, true, nil
}

// SavePublication appends the publication to the history.
func (r *PostgresRepository) SavePublication(ctx context.Context, pub domain.Publication) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Insert(publicationsTable).
		Columns("channel_id", "destination", "subscriber_count", "goal", "remote_id", "url", "published_at").
		Values(pub.ChannelID, string(pub.Destination), pub.Count, pub.Goal, pub.RemoteID, pub.URL, pub.PublishedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert publication: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert publication: %w", describe(err))
	}

	return nil
}

func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w (table %s is missing, run EnsureSchema)", err, publicationsTable)
	}
	return err
}

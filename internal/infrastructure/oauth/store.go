package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/youtube/v3"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

// DefaultScopes cover both destinations so one token serves either of them.
var DefaultScopes = []string{
	drive.DriveFileScope,
	youtube.YoutubeForceSslScope,
}

// Consent obtains a brand-new token from the resource owner.
type Consent interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	CredentialsFile string
	TokenFile       string
	Scopes          []string
	Consent         Consent
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Store keeps the OAuth token cache on disk next to the client secret.
type Store struct {
	config     *oauth2.Config
	tokenPath  string
	consent    Consent
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.CredentialStore = (*Store)(nil)

// tokenFile accepts both oauth2.Token JSON and google-auth authorized user files.
type tokenFile struct {
	AccessToken  string    `json:"access_token,omitempty"`
	Token        string    `json:"token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// NewStore reads the client secret; a missing credentials file is ErrConfigMissing.
func NewStore(opts StoreOptions) (*Store, error) {
	raw, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found, download it from Google Cloud Console: %w",
			domain.ErrConfigMissing, opts.CredentialsFile, err)
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	cfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfigMissing, opts.CredentialsFile, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Store{
		config:     cfg,
		tokenPath:  opts.TokenFile,
		consent:    opts.Consent,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Load returns the cached token, or nil when none has been persisted yet.
func (s *Store) Load() (*oauth2.Token, error) {
	raw, err := os.ReadFile(s.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var file tokenFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.warn("ignoring unreadable token cache", "path", s.tokenPath, "error", err)
		return nil, nil
	}

	access := file.AccessToken
	if access == "" {
		access = file.Token
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    file.TokenType,
		RefreshToken: file.RefreshToken,
		Expiry:       file.Expiry,
	}, nil
}

// Refresh mints a valid token: refresh grant first, interactive consent otherwise.
func (s *Store) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	ctx = s.clientContext(ctx)

	if tok != nil && tok.RefreshToken != "" {
		expired := *tok
		expired.Expiry = time.Unix(1, 0)
		fresh, err := s.config.TokenSource(ctx, &expired).Token()
		if err == nil {
			s.debug("token refreshed", "expiry", fresh.Expiry)
			return fresh, nil
		}
		s.warn("token refresh failed, requesting consent", "error", err)
	}

	if s.consent == nil {
		return nil, fmt.Errorf("%w: no valid token in %s and interactive consent is disabled",
			domain.ErrConfigMissing, s.tokenPath)
	}

	fresh, err := s.consent.Authorize(ctx, s.config)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}
	return fresh, nil
}

// Persist writes the token under an exclusive lock, replacing the file atomically.
func (s *Store) Persist(tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("%w: nil token", domain.ErrInvalidArgument)
	}

	raw, err := json.MarshalIndent(tokenFile{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	lock := flock.New(s.tokenPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock token cache: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.warn("unlock token cache", "error", err)
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(s.tokenPath), filepath.Base(s.tokenPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close token: %w", err)
	}
	if err := os.Rename(tmpName, s.tokenPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace token: %w", err)
	}

	s.debug("token persisted", "path", s.tokenPath)
	return nil
}

// Client returns an authorized HTTP client; every newly minted token is persisted.
func (s *Store) Client(ctx context.Context) (*http.Client, error) {
	tok, err := s.Load()
	if err != nil {
		return nil, err
	}

	if tok == nil || !tok.Valid() {
		tok, err = s.Refresh(ctx, tok)
		if err != nil {
			return nil, err
		}
		if err := s.Persist(tok); err != nil {
			return nil, err
		}
	}

	ctx = s.clientContext(ctx)
	source := &persistingSource{
		base:  s.config.TokenSource(ctx, tok),
		store: s,
		last:  tok.AccessToken,
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, source))
	client.Timeout = s.httpClient.Timeout
	return client, nil
}

func (s *Store) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *Store) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// persistingSource writes tokens refreshed mid-run back to the cache.
type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store *Store
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.store.Persist(tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

package app

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"ChannelBanner/internal/config"
	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/logging"
)

type fakeGoogle struct {
	server   *httptest.Server
	uploaded atomic.Pointer[[]byte]
	fetches  atomic.Int32
}

func newFakeGoogle(t *testing.T, subscribers string) *fakeGoogle {
	t.Helper()
	fake := &fakeGoogle{}

	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		fake.fetches.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"items":[{"id":%q,"statistics":{"subscriberCount":%q}}]}`, r.URL.Query().Get("id"), subscribers)
	})
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cached-access", r.Header.Get("Authorization"))

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if assert.NoError(t, err) {
			reader := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := reader.NextPart()
				if err != nil {
					break
				}
				data, _ := io.ReadAll(part)
				if part.Header.Get("Content-Type") == "image/png" {
					fake.uploaded.Store(&data)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-9","name":"banner.png","webViewLink":"https://drive.example.com/file-9"}`))
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func testConfig(t *testing.T, endpoint string) config.Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}

	t.Setenv("ENV_FILE", filepath.Join(dir, "none.env"))
	t.Setenv("BANNER_CONFIG", "")
	cfg := config.Load()

	cfg.YouTube.APIKey = "test-key"
	cfg.YouTube.ChannelID = "UCtest"
	cfg.YouTube.Endpoint = endpoint
	cfg.Goal = 100
	cfg.Banner.Output = filepath.Join(dir, "out", "banner.png")
	cfg.Banner.PreferredFont = write("bold.ttf", gobold.TTF)
	cfg.Banner.FallbackFont = write("regular.ttf", goregular.TTF)
	cfg.Publish.Destination = domain.DestinationDrive
	cfg.Publish.DriveFolderID = "folder-1"
	cfg.Publish.Endpoint = endpoint + "/"
	cfg.OAuth.CredentialsFile = write("credentials.json", []byte(
		`{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.example.com/auth","token_uri":"https://accounts.example.com/token","redirect_uris":["http://localhost"]}}`))
	cfg.OAuth.TokenFile = write("token.json", []byte(
		`{"access_token":"cached-access","token_type":"Bearer","refresh_token":"r","expiry":"2099-01-01T00:00:00Z"}`))
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Database.DSN = ""
	cfg.Notifications.Telegram.BotToken = ""
	cfg.Scheduler.CronExpression = ""

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Banner.Output), 0o755))
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunOnceUploadsToDrive(t *testing.T) {
	fake := newFakeGoogle(t, "42")
	cfg := testConfig(t, fake.server.URL)

	var logs bytes.Buffer
	application, err := New(context.Background(), cfg, logging.NewWithWriter(&logs, "info"), Options{ConsentOut: io.Discard})
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))

	saved, err := os.ReadFile(cfg.Banner.Output)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(saved))
	require.NoError(t, err)
	assert.Equal(t, 2560, img.Bounds().Dx())
	assert.Equal(t, 1440, img.Bounds().Dy())

	uploaded := fake.uploaded.Load()
	require.NotNil(t, uploaded)
	assert.Equal(t, saved, *uploaded)

	assert.Contains(t, logs.String(), "Banner published")
	assert.Contains(t, logs.String(), "file-9")
}

func TestRunScheduledUntilCancelled(t *testing.T) {
	fake := newFakeGoogle(t, "7")
	cfg := testConfig(t, fake.server.URL)
	cfg.Scheduler.CronExpression = "@hourly"

	application, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error"), Options{ConsentOut: io.Discard})
	require.NoError(t, err)
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	assert.Eventually(t, func() bool { return fake.uploaded.Load() != nil }, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, int32(1), fake.fetches.Load())
}

func TestNewRejectsUnknownDestination(t *testing.T) {
	fake := newFakeGoogle(t, "1")
	cfg := testConfig(t, fake.server.URL)
	cfg.Publish.Destination = "ftp"

	_, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error"), Options{})
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestRunFailsWithoutUploadWhenCountUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quotaExceeded"}}`))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	application, err := New(context.Background(), cfg, logging.NewWithWriter(io.Discard, "error"), Options{ConsentOut: io.Discard})
	require.NoError(t, err)
	defer application.Close()

	err = application.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	_, statErr := os.Stat(cfg.Banner.Output)
	assert.True(t, os.IsNotExist(statErr))
}

package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const completionMessage = "The authentication flow has completed. You may close this window."

// LoopbackConsent runs the installed-app flow against a redirect listener on 127.0.0.1.
type LoopbackConsent struct {
	Out     io.Writer
	Timeout time.Duration
	Logger  *slog.Logger
}

type callback struct {
	code string
	err  error
}

// Authorize prints the consent URL and waits for the browser redirect.
func (c *LoopbackConsent) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}

	conf := *cfg
	conf.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	state, err := randomState()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callback, 1)
	server := &http.Server{
		Handler:           c.handler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.warn("redirect listener stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(out, "Please visit this URL to authorize this application: %s\n", authURL)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callback
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("wait for consent: %w", waitCtx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func (c *LoopbackConsent) handler(state string, results chan<- callback) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}

		if reason := q.Get("error"); reason != "" {
			deliver(results, callback{err: fmt.Errorf("consent denied: %s", reason)})
			http.Error(w, "authorization was not granted: "+reason, http.StatusForbidden)
			return
		}

		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}

		deliver(results, callback{code: code})
		_, _ = io.WriteString(w, completionMessage)
	})
}

func (c *LoopbackConsent) warn(msg string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Warn(msg, args...)
	}
}

func deliver(results chan<- callback, res callback) {
	select {
	case results <- res:
	default:
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

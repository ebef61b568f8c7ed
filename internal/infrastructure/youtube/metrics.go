package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/infrastructure/apierror"
	"ChannelBanner/internal/ports"
)

const (
	// DefaultEndpoint is the YouTube Data API v3 base URL.
	DefaultEndpoint = "https://www.googleapis.com/youtube/v3"
	maxResponseSize = 1 << 20
)

// StatisticsClient reads channel statistics with a plain API key.
type StatisticsClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.MetricFetcher = (*StatisticsClient)(nil)

// NewStatisticsClient builds a client; a nil httpClient gets a 30s timeout.
func NewStatisticsClient(endpoint, apiKey string, httpClient *http.Client, logger *slog.Logger) *StatisticsClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &StatisticsClient{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type channelsResponse struct {
	Items *[]struct {
		ID         string `json:"id"`
		Statistics struct {
			SubscriberCount       string `json:"subscriberCount"`
			HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
		} `json:"statistics"`
	} `json:"items"`
	Error json.RawMessage `json:"error"`
}

// FetchCount returns the channel's public subscriber count.
func (c *StatisticsClient) FetchCount(ctx context.Context, channelID string) (int, error) {
	if c.apiKey == "" || channelID == "" {
		return 0, fmt.Errorf("%w: api key and channel id are required", domain.ErrConfigMissing)
	}

	reqURL, err := c.channelsURL(channelID)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request channel statistics: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("%w: read channel statistics: %w", domain.ErrUpstreamUnavailable, err)
	}

	var payload channelsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		diag := apierror.DescribeBody(resp.Header.Get("Content-Type"), body)
		c.logError("Error fetching subscriber count. API response:", "status", resp.Status, "response", diag)
		return 0, fmt.Errorf("%w: %s: %s", domain.ErrUpstreamUnavailable, resp.Status, diag)
	}

	if payload.Items == nil {
		c.logError("Error fetching subscriber count. API response:", "status", resp.Status, "response", string(body))
		if len(payload.Error) > 0 {
			c.logError("API Error Details:", "error", string(payload.Error))
		}
		return 0, fmt.Errorf("%w: 'items' not found in API response: %s",
			domain.ErrUpstreamUnavailable, strings.TrimSpace(string(body)))
	}

	if len(*payload.Items) == 0 {
		c.logError("Error fetching subscriber count. API response:", "status", resp.Status, "response", string(body))
		return 0, fmt.Errorf("%w: channel %s not found: %s",
			domain.ErrUpstreamUnavailable, channelID, strings.TrimSpace(string(body)))
	}

	stats := (*payload.Items)[0].Statistics
	if stats.HiddenSubscriberCount && stats.SubscriberCount == "" {
		return 0, fmt.Errorf("%w: channel %s hides its subscriber count", domain.ErrUpstreamUnavailable, channelID)
	}

	count, err := strconv.Atoi(stats.SubscriberCount)
	if err != nil {
		return 0, fmt.Errorf("%w: subscriberCount %q: %w", domain.ErrUpstreamUnavailable, stats.SubscriberCount, err)
	}

	c.debug("subscriber count fetched", "channel", channelID, "count", count)
	return count, nil
}

func (c *StatisticsClient) channelsURL(channelID string) (string, error) {
	parsed, err := url.Parse(c.endpoint + "/channels")
	if err != nil {
		return "", fmt.Errorf("%w: invalid youtube endpoint %s: %w", domain.ErrConfigMissing, c.endpoint, err)
	}

	query := parsed.Query()
	query.Set("part", "statistics")
	query.Set("id", channelID)
	query.Set("key", c.apiKey)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *StatisticsClient) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *StatisticsClient) logError(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

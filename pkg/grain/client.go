package grain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	"github.com/johnquangdev/grain-sync/pkg/config"
)

// DefaultBaseURL is the root of the Grain workspace API
const DefaultBaseURL = "https://api.grain.com/_/workspace-api"

// TranscriptFormatJSON asks Grain to inline the structured transcript as transcript_json
const TranscriptFormatJSON = "json"

// maxErrorBody bounds how much of an error response is kept in APIError.Message
const maxErrorBody = 4096

// Client is a minimal client for the Grain workspace API
type Client struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryWait  time.Duration
	logger     *zap.Logger
}

// NewClient creates a Grain client from the provided config. The token is sent as a bearer
// token on every request.
func NewClient(cfg *config.GrainConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.APIToken == "" {
		return nil, ErrMissingToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    base,
		client:     httpClient,
		maxRetries: cfg.MaxRetries,
		retryWait:  time.Second,
		logger:     logger,
	}, nil
}

// ListRecordings fetches one page of recordings. An empty cursor requests the first page.
func (c *Client) ListRecordings(ctx context.Context, cursor string) (*entities.RecordingPage, error) {
	query := recordingQuery()
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page entities.RecordingPage
	if err := c.get(ctx, "/recordings", query, &page); err != nil {
		return nil, err
	}
	if page.Recordings == nil {
		page.Recordings = []entities.Recording{}
	}
	return &page, nil
}

// GetRecording fetches a single recording including its transcript in the given format
func (c *Client) GetRecording(ctx context.Context, recordingID, transcriptFormat string) (*entities.Recording, error) {
	if recordingID == "" {
		return nil, entities.ErrRecordingIDMissing
	}

	query := recordingQuery()
	if transcriptFormat != "" {
		query.Set("transcript_format", transcriptFormat)
	}

	var recording entities.Recording
	if err := c.get(ctx, "/recordings/"+url.PathEscape(recordingID), query, &recording); err != nil {
		return nil, err
	}
	return &recording, nil
}

func recordingQuery() url.Values {
	query := url.Values{}
	query.Set("include_participants", "true")
	query.Set("include_owners", "true")
	return query
}

// get performs a GET and decodes the JSON body into out, retrying transient failures when
// maxRetries > 0
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	if c.maxRetries <= 0 {
		return c.do(ctx, path, endpoint, out)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := c.do(ctx, path, endpoint, out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if attempt <= c.maxRetries {
			c.logger.Warn("Grain request failed, retrying",
				zap.String("endpoint", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryWait
	bo.MaxInterval = 10 * c.retryWait
	bo.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx))
}

func (c *Client) do(ctx context.Context, path, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    errorMessage(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts a readable message from an error body
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmateus/lexflash/internal/errors"
	"github.com/dmateus/lexflash/internal/logger"
)

// Client is the HTTP implementation of API. Success responses arrive in a
// {data, meta} envelope; errors carry {code, message} with a non-2xx status.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a Client for the given base URL. timeout bounds every request;
// a timeout counts as a retryable network failure.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Default().WithPrefix("remote"),
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) UploadReviews(ctx context.Context, batch []ReviewUpload) (*BatchAck, error) {
	var ack BatchAck
	if err := c.do(ctx, http.MethodPost, "/v1/progress/reviews", batch, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) UploadCards(ctx context.Context, batch []CardUpload) (*BatchAck, error) {
	var ack BatchAck
	if err := c.do(ctx, http.MethodPost, "/v1/cards/batch", batch, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) UploadSettings(ctx context.Context, batch []SettingUpload) (*BatchAck, error) {
	var ack BatchAck
	if err := c.do(ctx, http.MethodPost, "/v1/settings/batch", batch, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) CardsUpdatedSince(ctx context.Context, since time.Time) ([]RemoteCard, error) {
	path := "/v1/cards"
	if !since.IsZero() {
		path += "?updated_since=" + url.QueryEscape(since.Format(time.RFC3339Nano))
	}
	var cards []RemoteCard
	if err := c.do(ctx, http.MethodGet, path, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) SubmitLessonProgress(ctx context.Context, record ProgressRecord) error {
	return c.do(ctx, http.MethodPost, "/v1/progress/lessons", record, nil)
}

func (c *Client) FetchProgress(ctx context.Context) (*ProgressReport, error) {
	var report ProgressReport
	if err := c.do(ctx, http.MethodGet, "/v1/progress", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	log := logger.FromContext(ctx).WithPrefix("remote")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewInvalidInputError("request body", err.Error())
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.NewNetworkError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debug("%s %s", method, path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures and client timeouts are both retryable.
		log.Warn("request failed: %s %s: %v", method, path, err)
		return errors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode >= 500 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Warn("server error: status=%d, body=%s", resp.StatusCode, string(raw))
		return errors.NewNetworkError(fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			apiErr = apiError{Code: "UNKNOWN", Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		log.Warn("request rejected: status=%d, code=%s, message=%s", resp.StatusCode, apiErr.Code, apiErr.Message)
		return errors.NewServerRejectedError(resp.StatusCode, apiErr.Code, apiErr.Message)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Error("failed to decode response envelope: %v", err)
		return errors.NewNetworkError(err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Error("failed to decode response data: %v", err)
		return errors.NewNetworkError(err)
	}
	return nil
}
